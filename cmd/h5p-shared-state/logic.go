/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yorkie-team/h5p-shared-state/pkg/logic"
)

// ErrChecksFailed is returned by the eval command when a check does not hold.
var ErrChecksFailed = errors.New("checks failed")

var (
	checksPath  string
	contextPath string
)

func newLogicCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logic",
		Short: "Inspect the logic checks of a library",
	}
}

func newLogicEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "eval --checks [file] --context [file]",
		Short:        "Evaluate a check list against a context and print every comparison",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			checks, err := readJSONFile(checksPath)
			if err != nil {
				return err
			}
			context, err := readJSONFile(contextPath)
			if err != nil {
				return err
			}

			expr, err := logic.Default.Compile(checks)
			if err != nil {
				return err
			}

			results := expr.Results(context)
			printResults(cmd, results)

			for _, result := range results {
				if !result.Passed {
					return ErrChecksFailed
				}
			}
			return nil
		},
	}
}

func printResults(cmd *cobra.Command, results []logic.Result) {
	tw := table.NewWriter()
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.SeparateFooter = false
	tw.Style().Options.SeparateHeader = false
	tw.Style().Options.SeparateRows = false
	tw.AppendHeader(table.Row{
		"PATH",
		"OPERATOR",
		"LEFT",
		"RIGHT",
		"PASSED",
	})
	for _, result := range results {
		tw.AppendRow(table.Row{
			result.Path,
			result.Operator,
			formatValue(result.Left),
			formatValue(result.Right),
			result.Passed,
		})
	}
	cmd.Printf("%s\n", tw.Render())
}

func formatValue(v any) string {
	if v == nil {
		return "-"
	}
	bytes, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(bytes)
}

func readJSONFile(path string) (any, error) {
	bytes, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var v any
	if err := json.Unmarshal(bytes, &v); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

func init() {
	cmd := newLogicCmd()
	eval := newLogicEvalCmd()
	eval.Flags().StringVar(
		&checksPath,
		"checks",
		"",
		"Path of the JSON check list",
	)
	eval.Flags().StringVar(
		&contextPath,
		"context",
		"",
		"Path of the JSON context the checks run against",
	)
	_ = eval.MarkFlagRequired("checks")
	_ = eval.MarkFlagRequired("context")

	cmd.AddCommand(eval)
	rootCmd.AddCommand(cmd)
}
