package main

import (
	_ "embed"
	"io"
	"os"
	"text/template"
)

//go:embed shiftbank.service
var shiftbankServiceEmbed string

type ShiftbankServiceParams struct {
	BinaryPath string
	User       string
	Banks      []string
}

// SystemdServiceFile writes a oneshot unit that resets the banks at boot,
// so outputs never stay in whatever state the last run left them.
func SystemdServiceFile(w io.Writer, params ShiftbankServiceParams) error {
	tmpl, err := template.New("shiftbank.service").Parse(shiftbankServiceEmbed)
	if err != nil {
		return err
	}

	if params.BinaryPath == "" {
		path, err := os.Executable()
		if err != nil {
			return err
		}
		params.BinaryPath = path
	}

	return tmpl.Execute(w, params)
}
