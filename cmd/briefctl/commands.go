package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type generateOptions struct {
	globalOptions
	Title   string
	Email   string
	Ticker  string
	Company string
	Timeout float64
	Out     string
}

type generateSummary struct {
	TaskID  string `json:"task_id"           yaml:"task_id"`
	Status  string `json:"status"            yaml:"status"`
	File    string `json:"file,omitempty"    yaml:"file,omitempty"`
	Bytes   int    `json:"bytes,omitempty"   yaml:"bytes,omitempty"`
	Digest  string `json:"digest,omitempty"  yaml:"digest,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	Error   string `json:"error,omitempty"   yaml:"error,omitempty"`
}

func runGenerate(cmdCtx *commandContext, args []string) error {
	var opts generateOptions
	fs := newFlagSet("generate", cmdCtx.Err, &opts.globalOptions)
	fs.StringVar(&opts.Title, "title", "", "report title")
	fs.StringVar(&opts.Email, "email", "", "recipient address (required)")
	fs.StringVar(&opts.Ticker, "ticker", "", "ticker symbol")
	fs.StringVar(&opts.Company, "company", "", "company name")
	fs.Float64Var(&opts.Timeout, "timeout", 0, "seconds to wait before falling back to email delivery (0 uses the server default)")
	fs.StringVar(&opts.Out, "out", "", "file to write the PDF to (defaults to the server-provided filename)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		return err
	}
	if opts.Email == "" {
		return errors.New("--email is required")
	}

	client := newAPIClient(opts.Addr, clientTimeout(opts.Timeout))
	res, err := client.Generate(cmdCtx.Ctx, generateQuery{
		Title:   opts.Title,
		Email:   opts.Email,
		Ticker:  opts.Ticker,
		Company: opts.Company,
		Timeout: opts.Timeout,
	})
	if err != nil {
		return err
	}

	summary := generateSummary{
		TaskID:  res.TaskID,
		Status:  res.Status,
		Digest:  res.Digest,
		Message: res.Message,
		Error:   res.Error,
	}
	if len(res.PDF) > 0 {
		path := opts.Out
		if path == "" {
			path = filepath.Base(res.Filename)
		}
		if err := os.WriteFile(path, res.PDF, 0o644); err != nil { //nolint:gosec // report files are not secret
			return fmt.Errorf("write pdf: %w", err)
		}
		summary.File = path
		summary.Bytes = len(res.PDF)
	}
	if err := printResult(cmdCtx.Out, opts.Output, summary); err != nil {
		return err
	}
	if res.Status == "failed" {
		return errors.New("generation failed")
	}
	return nil
}

// clientTimeout leaves headroom over the requested deadline for placeholder
// synthesis and transfer.
func clientTimeout(secs float64) time.Duration {
	if secs <= 0 {
		return 3 * time.Minute
	}
	return time.Duration(secs*float64(time.Second)) + 30*time.Second
}

func runStatus(cmdCtx *commandContext, args []string) error {
	var opts globalOptions
	fs := newFlagSet("status", cmdCtx.Err, &opts)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: briefctl status [flags] TASK_ID")
	}

	view, err := newAPIClient(opts.Addr, 30*time.Second).Status(cmdCtx.Ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return printResult(cmdCtx.Out, opts.Output, view)
}

type cleanupOptions struct {
	globalOptions
	Hours float64
}

func runCleanup(cmdCtx *commandContext, args []string) error {
	var opts cleanupOptions
	fs := newFlagSet("cleanup", cmdCtx.Err, &opts.globalOptions)
	fs.Float64Var(&opts.Hours, "hours", 24, "remove tasks created more than this many hours ago")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		return err
	}
	if opts.Hours <= 0 {
		return errors.New("--hours must be positive")
	}

	res, err := newAPIClient(opts.Addr, 30*time.Second).Cleanup(cmdCtx.Ctx, opts.Hours)
	if err != nil {
		return err
	}
	return printResult(cmdCtx.Out, opts.Output, res)
}
