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
	"runtime"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yorkie-team/h5p-shared-state/internal/version"
)

var output string

// versionInfo is the build information printed by the version command.
type versionInfo struct {
	Version         string `json:"version" yaml:"version"`
	GitCommit       string `json:"gitCommit,omitempty" yaml:"gitCommit,omitempty"`
	GoVersion       string `json:"goVersion" yaml:"goVersion"`
	BuildDate       string `json:"buildDate,omitempty" yaml:"buildDate,omitempty"`
	ProtocolVersion int    `json:"protocolVersion" yaml:"protocolVersion"`
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of the shared-state server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(); err != nil {
				return err
			}

			info := versionInfo{
				Version:         version.Version,
				GitCommit:       version.GitCommit,
				GoVersion:       runtime.Version(),
				BuildDate:       version.BuildDate,
				ProtocolVersion: version.ProtocolVersion,
			}

			switch output {
			case "":
				cmd.Printf("H5P Shared State: %s\n", info.Version)
				if info.GitCommit != "" {
					cmd.Printf("Commit: %s\n", info.GitCommit)
				}
				cmd.Printf("Go: %s\n", info.GoVersion)
				cmd.Printf("Build Date: %s\n", info.BuildDate)
				cmd.Printf("Protocol: %d\n", info.ProtocolVersion)
			case "yaml":
				marshalled, err := yaml.Marshal(&info)
				if err != nil {
					return errors.New("failed to marshal YAML")
				}
				cmd.Print(string(marshalled))
			case "json":
				marshalled, err := json.MarshalIndent(&info, "", "  ")
				if err != nil {
					return errors.New("failed to marshal JSON")
				}
				cmd.Println(string(marshalled))
			}

			return nil
		},
	}
}

func validateOutput() error {
	if output != "" && output != "yaml" && output != "json" {
		return fmt.Errorf("--output must be 'yaml' or 'json', got %q", output)
	}
	return nil
}

func init() {
	cmd := newVersionCmd()
	cmd.Flags().StringVarP(
		&output,
		"output",
		"o",
		"",
		"One of 'yaml' or 'json'.",
	)
	rootCmd.AddCommand(cmd)
}
