// Copyright ASDL Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package asdlcmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/asdl-hdl/asdlc/pkg/asdl"
	"github.com/asdl-hdl/asdlc/pkg/ast"
	"github.com/asdl-hdl/asdlc/pkg/diag"
	"github.com/asdl-hdl/asdlc/pkg/docfile"
	"github.com/asdl-hdl/asdlc/pkg/render"
	"github.com/asdl-hdl/asdlc/pkg/views"
)

var compileCmd = &cobra.Command{
	Use:   "compile [documents...]",
	Short: "Compile one or more ASDL documents into backend netlist text.",
	Long: "Lowers, atomizes, optionally view-binds, projects, verifies and " +
		"renders the given documents, writing the rendered netlist text to " +
		"--out (or stdout) and every diagnostic to stderr.",
	Args: cobra.MinimumNArgs(1),
	Run:  runCompile,
}

func init() {
	compileCmd.Flags().String("backend", "", "path to the backend render configuration (YAML)")
	compileCmd.Flags().String("profile", "", "path to an optional view-binding profile (YAML)")
	compileCmd.Flags().StringP("out", "o", "", "output file for rendered netlist text (default: stdout)")
	_ = compileCmd.MarkFlagRequired("backend")
	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, args []string) {
	log := logrus.WithField("component", "asdlc")
	if GetFlag(cmd, "verbose") {
		logrus.SetLevel(logrus.DebugLevel)
	}

	backendPath := GetString(cmd, "backend")
	backendCfg, err := render.LoadConfig(backendPath)
	if err != nil {
		log.WithError(err).Error("failed to load backend configuration")
		os.Exit(2)
	}

	var profile *views.Profile
	if profilePath := GetString(cmd, "profile"); profilePath != "" {
		profile, err = views.LoadProfile(profilePath)
		if err != nil {
			log.WithError(err).Error("failed to load view profile")
			os.Exit(2)
		}
	}

	docs := make([]*ast.Document, 0, len(args))
	for _, path := range args {
		doc, err := docfile.Load(path)
		if err != nil {
			log.WithError(err).WithField("path", path).Error("failed to load document")
			os.Exit(2)
		}
		docs = append(docs, doc)
	}

	result, diags := asdl.Compile(context.Background(), docs, asdl.Options{Profile: profile, Backend: backendCfg})
	reportDiagnostics(diags)

	if diag.HasError(diags) {
		os.Exit(1)
	}

	out := GetString(cmd, "out")
	if out == "" {
		fmt.Println(result.Text)
		return
	}
	if err := os.WriteFile(out, []byte(result.Text), 0o644); err != nil {
		log.WithError(err).WithField("path", out).Error("failed to write output")
		os.Exit(2)
	}
}

func reportDiagnostics(diags []diag.Diagnostic) {
	for _, d := range diags {
		entry := logrus.WithFields(logrus.Fields{
			"code":   d.Code,
			"source": d.Source,
		})
		msg := d.Message
		if d.Help != "" {
			msg = msg + " (" + d.Help + ")"
		}
		switch d.Severity {
		case diag.FATAL, diag.ERROR:
			entry.Error(msg)
		case diag.WARNING:
			entry.Warn(msg)
		default:
			entry.Info(msg)
		}
		for _, note := range d.Notes {
			entry.Debug(note)
		}
	}
}
