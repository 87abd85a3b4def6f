package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ashureev/devgenie/internal/analysis"
	"github.com/ashureev/devgenie/internal/domain"
	"github.com/ashureev/devgenie/internal/llm"
	"github.com/ashureev/devgenie/internal/provider"
	"github.com/ashureev/devgenie/internal/render"
	"github.com/ashureev/devgenie/internal/validate"
)

var (
	analyzeMode       string
	analyzeLanguage   string
	analyzeOutputLang string
	analyzeHTML       bool
	analyzeReport     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file|-]",
	Short: "Analyze a file or stdin once and print the result",
	Long: `Analyze runs a single analysis without storing it and prints the model's
markdown answer to stdout. With no argument, or "-", code is read from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeMode, "mode", "m", string(domain.ModeExplain), "analysis mode (explain, refactor, debug, optimize, security)")
	analyzeCmd.Flags().StringVarP(&analyzeLanguage, "language", "l", string(domain.LanguageAuto), "code language, or auto to detect")
	analyzeCmd.Flags().StringVarP(&analyzeOutputLang, "output-language", "o", string(domain.OutputOriginal), "response language (none, en, es, hi, fr, de, zh, ja)")
	analyzeCmd.Flags().BoolVar(&analyzeHTML, "html", false, "print rendered HTML instead of markdown")
	analyzeCmd.Flags().BoolVar(&analyzeReport, "report", false, "print the full markdown report including the code")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	// Logs go to stderr so stdout carries only the answer.
	setupLogger(os.Stderr, slog.LevelWarn)

	mode, err := domain.ParseMode(analyzeMode)
	if err != nil {
		return err
	}
	lang, err := domain.ParseCodeLanguage(analyzeLanguage)
	if err != nil {
		return err
	}
	outLang, err := domain.ParseOutputLanguage(analyzeOutputLang)
	if err != nil {
		return err
	}

	code, fileName, err := readSource(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	setupLogger(os.Stderr, max(cfg.LogLevel, slog.LevelWarn))

	svc := analysis.NewService(provider.New(cfg.LLM, cfg.Timeout.LLMRequest), nil, analysis.Options{
		MaxCodeLength: cfg.Limits.MaxCodeLength,
		Timeout:       cfg.Timeout.LLMRequest,
	})
	a, err := svc.Analyze(cmd.Context(), analysis.Request{
		Code:           code,
		FileName:       fileName,
		Mode:           mode,
		Language:       lang,
		OutputLanguage: outLang,
	})
	if err != nil {
		var me *analysis.ModelError
		if errors.As(err, &me) {
			return errors.New(llm.UserMessage(err))
		}
		return errors.New(validate.UserMessage(err))
	}

	out := cmd.OutOrStdout()
	for _, w := range a.Warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
	}

	text := a.Result
	if analyzeReport {
		text, _ = analysis.Report(a)
	}
	if analyzeHTML {
		if text, err = render.Markdown(text); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(out, text)
	return err
}

func readSource(stdin io.Reader, args []string) (code, fileName string, err error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), filepath.Base(args[0]), nil
}
