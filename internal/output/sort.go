// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"sort"
	"strings"
	"time"
)

// SortDataset orders rows by a comma-separated list of columns. A leading
// "-" sorts that column descending and a leading "!" makes the comparison case
// sensitive. Numeric columns compare as numbers.
func SortDataset(resultSet []map[string]interface{}, spec string) {
	fields := strings.Split(spec, ",")

	sort.SliceStable(resultSet, func(one, two int) bool {
		for _, field := range fields {
			ascending := true
			if strings.HasPrefix(field, "-") {
				field = strings.TrimPrefix(field, "-")
				ascending = false
			}

			caseSensitive := false
			if strings.HasPrefix(field, "!") {
				field = strings.TrimPrefix(field, "!")
				caseSensitive = true
			}

			oneValue := resultSet[one][field]
			twoValue := resultSet[two][field]

			oneNum, oneOk := number(oneValue)
			twoNum, twoOk := number(twoValue)

			if oneOk && twoOk {
				if oneNum != twoNum {
					if ascending {
						return oneNum < twoNum
					}
					return oneNum > twoNum
				}
				continue
			}

			// Fall back to string comparison which can also handle bools.
			oneStr := InterfaceToString(oneValue)
			twoStr := InterfaceToString(twoValue)

			compareOneStr := oneStr
			compareTwoStr := twoStr
			if !caseSensitive {
				compareOneStr = strings.ToLower(oneStr)
				compareTwoStr = strings.ToLower(twoStr)
			}

			if compareOneStr != compareTwoStr {
				if ascending {
					return compareOneStr < compareTwoStr
				}
				return compareOneStr > compareTwoStr
			}
		}
		return false
	})
}

// number widens the numeric types that appear in report rows.
func number(v interface{}) (int64, bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case time.Duration:
		return int64(v), true
	}
	return 0, false
}
