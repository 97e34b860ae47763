package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"simcheck/internal/db"
	"simcheck/internal/engine"
	"simcheck/internal/ingest"
	"simcheck/internal/report"
	"simcheck/internal/submission"
	"simcheck/internal/workspace"
)

func checkCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check CANDIDATE [CORPUS...]",
		Short: "Score one document against a set of documents",
		Long:  "Score a candidate document against corpus documents without touching the store. Files may be .txt, .md, .html, .docx or .pdf.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			candidate, err := ingest.ParseFile(args[0])
			if err != nil {
				return err
			}
			corpusTexts := make([]string, 0, len(args)-1)
			for _, path := range args[1:] {
				doc, err := ingest.ParseFile(path)
				if err != nil {
					return err
				}
				corpusTexts = append(corpusTexts, doc.Text)
			}

			eng, err := a.engine()
			if err != nil {
				return err
			}
			summary, err := eng.Check(candidate.Text, corpusTexts)
			if err != nil {
				return err
			}

			if out, _ := cmd.Flags().GetString("report"); out != "" {
				format, err := a.format(cmd)
				if err != nil {
					return err
				}
				id := candidate.Title
				if id == "" {
					id = filepath.Base(args[0])
				}
				doc, err := eng.RenderReport(id, candidate.Text, summary)
				if err != nil {
					return err
				}
				raw, err := doc.BytesWith(format, report.Options{FontPath: a.cfg.PDFFont})
				if err != nil {
					return err
				}
				if err := workspace.SaveReport(out, raw); err != nil {
					return err
				}
				a.log.Info("report written", "path", out, "format", format)
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().String("report", "", "write a report artifact to this path")
	cmd.Flags().String("format", "", "report format: html, pdf or json (default from config)")
	return cmd
}

func submitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Store a submission and check it against earlier submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := submission.Input{}
			in.ID, _ = cmd.Flags().GetString("id")
			in.Student, _ = cmd.Flags().GetString("student")
			in.Assignment, _ = cmd.Flags().GetString("assignment")
			in.Text, _ = cmd.Flags().GetString("text")
			if path, _ := cmd.Flags().GetString("file"); path != "" {
				raw, err := readUpload(path)
				if err != nil {
					return err
				}
				in.FileName = path
				in.FileContent = raw
			}

			svc, closeFn, err := a.service(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			out, err := svc.Submit(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().String("id", "", "submission id (generated when empty)")
	cmd.Flags().String("student", "", "student identifier")
	cmd.Flags().String("assignment", "", "assignment the submission belongs to")
	cmd.Flags().String("text", "", "typed submission text")
	cmd.Flags().String("file", "", "uploaded document")
	cmd.Flags().String("format", "", "report format: html, pdf or json (default from config)")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("assignment")
	return cmd
}

func recheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recheck",
		Short: "Re-score every submission of an assignment against all the others",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			assignment, _ := cmd.Flags().GetString("assignment")
			svc, closeFn, err := a.service(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			outcomes, errs := svc.Recheck(cmd.Context(), assignment)
			for _, err := range errs {
				a.log.Error("recheck failed", "err", err)
			}
			if err := printJSON(cmd.OutOrStdout(), outcomes); err != nil {
				return err
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d of the submissions could not be rechecked", len(errs))
			}
			return nil
		},
	}
	cmd.Flags().String("assignment", "", "assignment to recheck")
	cmd.Flags().String("format", "", "report format: html, pdf or json (default from config)")
	_ = cmd.MarkFlagRequired("assignment")
	return cmd
}

func reportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report ID",
		Short: "Show the stored result of a submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := db.OpenStore(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := store.GetResult(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func (a *app) engine() (*engine.Engine, error) {
	return engine.New(engine.Options{
		ChunkSize:        a.cfg.ChunkSize,
		PartialThreshold: a.cfg.PartialThreshold,
		Logger:           a.log,
	})
}

func (a *app) format(cmd *cobra.Command) (report.Format, error) {
	value := a.cfg.ReportFormat
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		value = f
	}
	return report.ParseFormat(value)
}

func (a *app) service(cmd *cobra.Command) (*submission.Service, func(), error) {
	format, err := a.format(cmd)
	if err != nil {
		return nil, nil, err
	}
	eng, err := a.engine()
	if err != nil {
		return nil, nil, err
	}
	if _, err := workspace.EnsureAt(a.cfg.Workspace); err != nil {
		return nil, nil, err
	}
	store, err := db.OpenStore(a.cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	svc, err := submission.NewService(submission.Options{
		Engine:         eng,
		Store:          store,
		WorkspaceRoot:  a.cfg.Workspace,
		Format:         format,
		PDFFont:        a.cfg.PDFFont,
		AlertThreshold: a.cfg.AlertThreshold,
		Workers:        a.cfg.Workers,
		Logger:         a.log,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return svc, func() { _ = store.Close() }, nil
}

func readUpload(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	raw, err := io.ReadAll(io.LimitReader(f, ingest.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
