package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"znkr.io/datasource/autodiff/pack"
	"znkr.io/datasource/autodiff/records"
	"znkr.io/datasource/autodiff/report"
	"znkr.io/datasource/diff"
)

func diffCmd() *cobra.Command {
	var (
		flags    itemFlags
		output   string
		packFile string
	)
	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Prints the changes that turn the items in OLD into the items in NEW",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.resolve(cmd)
			r, err := diffFiles(args[0], args[1], flags)
			if err != nil {
				return err
			}
			if packFile != "" {
				if err := packReport(packFile, r); err != nil {
					return fmt.Errorf("packing report: %w", err)
				}
			}
			return write(cmd.OutOrStdout(), r, output)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, markdown, json or html")
	cmd.Flags().StringVar(&packFile, "pack", "", "also write the report into this tar file")
	return cmd
}

// diffFiles returns a report of the changes between the records of two files.
func diffFiles(oldPath, newPath string, flags itemFlags) (*report.Report, error) {
	before, err := records.Load(oldPath, flags.format, flags.key)
	if err != nil {
		return nil, err
	}
	after, err := records.Load(newPath, flags.format, flags.key)
	if err != nil {
		return nil, err
	}
	return &report.Report{
		Title: fmt.Sprintf("%s → %s", oldPath, newPath),
		Time:  time.Now(),
		Old:   before,
		New:   after,
		Batch: diff.Keyed(before, after, records.Identity, diff.Options[records.Record]{
			Equal:     records.Equal,
			FindMoves: flags.moves,
		}),
		Lang: flags.lang,
	}, nil
}

func write(w io.Writer, r *report.Report, output string) error {
	var (
		b   []byte
		err error
	)
	switch output {
	case "text":
		return report.Text(w, r)
	case "markdown":
		b, err = report.Markdown(r)
	case "json":
		b, err = report.JSON(r)
	case "html":
		b, err = report.HTML(r, report.Page{})
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func packReport(filename string, r *report.Report) error {
	page, err := report.HTML(r, report.Page{})
	if err != nil {
		return err
	}
	md, err := report.Markdown(r)
	if err != nil {
		return err
	}
	js, err := report.JSON(r)
	if err != nil {
		return err
	}
	return pack.Pack(filename, []pack.Page{
		{Path: "index.html", MimeType: "text/html; charset=utf-8", Data: page},
		{Path: "report.md", MimeType: "text/markdown; charset=utf-8", Data: md},
		{Path: "changes.json", MimeType: "application/json", Data: js},
	})
}
