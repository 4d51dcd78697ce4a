package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"combocheck/internal/util"
	"combocheck/pkg/combos/pipeline"
	"combocheck/pkg/combos/report"
	"combocheck/pkg/logger"
	"combocheck/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	params := pipeline.Params{
		DefinitionPath: util.GetEnv("COMBOCHECK_DEFINITION"),
		DeviceLogPath:  util.GetEnv("COMBOCHECK_DEVICELOG"),
		CapabilityPath: util.GetEnv("COMBOCHECK_CAPABILITY"),
		ControlDir:     util.GetEnv("COMBOCHECK_CONTROL_DIR"),
		RulesDir:       util.GetEnv("COMBOCHECK_RULES_DIR"),
		Region:         util.GetEnv("COMBOCHECK_REGION"),
		Policy:         util.GetEnv("COMBOCHECK_POLICY"),
		SizeLimit:      int64(util.GetEnvNumeric("COMBOCHECK_SIZE_LIMIT", 0)),
	}

	if params.DefinitionPath == "" && params.DeviceLogPath == "" {
		logger.Fatal("No input sources configured, set COMBOCHECK_DEFINITION and COMBOCHECK_DEVICELOG")
	}

	timeout := time.Duration(util.GetEnvNumeric("COMBOCHECK_TIMEOUT_SECONDS", 60)) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := pipeline.Run(runCtx, params)
	if err != nil {
		logger.Fatal("Analysis failed", "err", err)
	}

	outputDir := util.GetEnvString("COMBOCHECK_OUTPUT_DIR", ".")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		logger.Fatal("Could not create output directory", "dir", outputDir, "err", err)
	}

	reportPath := filepath.Join(outputDir, "analysis_"+result.ID+".json")
	data, err := report.JSON(result)
	if err != nil {
		logger.Fatal("Could not build report", "err", err)
	}
	if err := os.WriteFile(reportPath, data, 0o644); err != nil {
		logger.Fatal("Could not write report", "path", reportPath, "err", err)
	}

	payload := report.Prompt(result)
	promptPath := filepath.Join(outputDir, "review_prompt_"+result.ID+".md")
	if err := os.WriteFile(promptPath, []byte(payload), 0o644); err != nil {
		logger.Fatal("Could not write review prompt", "path", promptPath, "err", err)
	}

	if tokens, err := report.PromptTokens(payload); err == nil {
		logger.Debug("Review prompt assembled", "tokens", tokens)
	}

	logger.Info("Analysis written",
		"report", reportPath,
		"prompt", promptPath,
		"discrepancies", len(result.Discrepancies),
		"high_priority", len(result.HighPriority()),
	)

	for _, warning := range result.Warnings {
		logger.Warn("Analysis warning", "warning", warning)
	}
}
