// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/nemo-hyperpod/cfnpack/internal/meta"
)

const bashCompletionScript = `# bash completion for cfnpack
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_cfnpack()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "package layer all publish completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local common="--artifacts --color -c --output -o --sort -s --titles -t"

    local have_rootdir=0
    local idx=2
    while [[ $idx -lt ${#COMP_WORDS[@]} ]]; do
        local w=${COMP_WORDS[$idx]}
        if [[ $w != -* ]]; then
            have_rootdir=1
            break
        fi
        ((idx++))
    done

    case "$cmd" in
        package)
            local opts="$common --resource -r --python"
            ;;
        layer)
            local opts="$common --strategy --arch"
            ;;
        publish)
            local opts="$common --bucket-prefix --check-policy --dry-run --exclude --principal --profile --region --snapshot"
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$common"
            ;;
    esac

    case "$prev" in
        --output|-o)
            COMPREPLY=( $(compgen -W "text json yaml" -- "$cur") )
            return 0
            ;;
        --strategy)
            COMPREPLY=( $(compgen -W "download container" -- "$cur") )
            return 0
            ;;
        --arch)
            COMPREPLY=( $(compgen -W "amd64 arm64" -- "$cur") )
            return 0
            ;;
        --artifacts)
            COMPREPLY=( $(compgen -o dirnames -- "$cur") )
            return 0
            ;;
    esac

    if [[ "$cur" == -* || $have_rootdir -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
        return 0
    fi

    COMPREPLY=( $(compgen -o dirnames -- "$cur") )
    return 0
}

complete -F _cfnpack cfnpack
`

const zshCompletionScript = `#compdef cfnpack

_cfnpack() {
  local -a cmds
  cmds=(
    'package:package Lambda resources into zip artifacts'
    'layer:build the kubectl Lambda layer'
    'all:run every per-directory build script'
    'publish:stage and sync to the template bucket'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '--artifacts[artifacts directory]:dir:_directories'
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-o --output)'{-o,--output}'[output format]:format:(text json yaml)'
  '(-s --sort)'{-s,--sort}'[sort columns]:columns'
  '(-t --titles)'{-t,--titles}'[show titles]'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'cfnpack commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    package)
      _arguments -C \
        $common \
        '*'{-r,--resource}'[resource to package]:resource' \
        '--python[python interpreter]:python' \
        '::RootDir:_directories'
      ;;
    layer)
      _arguments -C \
        $common \
        '--strategy[build strategy]:strategy:(download container)' \
        '--arch[architecture]:arch:(amd64 arm64)' \
        '::RootDir:_directories'
      ;;
    publish)
      _arguments -C \
        $common \
        '--bucket-prefix[bucket name prefix]:prefix' \
        '--check-policy[report bucket policy drift]' \
        '--dry-run[plan without changing the bucket]' \
        '*--exclude[key prefix to leave untouched]:prefix' \
        '--principal[service principal]:principal' \
        '--profile[AWS profile]:profile' \
        '--region[AWS region]:region' \
        '--snapshot[snapshot tree name]:name' \
        '::RootDir:_directories'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $common '*:directory:_directories'
      ;;
  esac
}

if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _cfnpack cfnpack
`

func completionCommandAction(ctx context.Context, cmd *cli.Command) error {
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	if shell == "" {
		// Fall back to the login shell.
		sh := os.Getenv("SHELL")
		switch {
		case strings.HasSuffix(sh, "zsh"):
			shell = "zsh"
		case strings.HasSuffix(sh, "bash"):
			shell = "bash"
		}
	}

	switch shell {
	case "bash":
		fmt.Fprint(stdout, bashCompletionScript)
	case "zsh":
		fmt.Fprint(stdout, zshCompletionScript)
	default:
		return errors.New("usage: cfnpack completion [bash|zsh]")
	}
	return nil
}

func completionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "cfnpack completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: completionCommandAction,
	}
}
