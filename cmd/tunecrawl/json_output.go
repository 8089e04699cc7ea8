package main

import (
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON. Track URLs are left unescaped.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// emit prints payload as JSON under --json and calls render otherwise. The
// command error is returned after output so partial results still print.
func (c *commandContext) emit(cmd *cobra.Command, payload any, cmdErr error, render func() error) error {
	var err error
	if c.jsonOutput() {
		err = writeJSON(cmd.OutOrStdout(), payload)
	} else if render != nil {
		err = render()
	}
	if err != nil {
		return err
	}
	return cmdErr
}
