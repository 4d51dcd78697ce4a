// Package pipeline runs one full reconciliation: parse the source documents,
// reconcile them category by category, then enrich every finding with
// knowledge-base reasoning. One invocation builds a fresh object graph; no
// state survives between runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"combocheck/pkg/combos"
	"combocheck/pkg/combos/knowledge"
	"combocheck/pkg/combos/parser"
	"combocheck/pkg/combos/parser/capability"
	"combocheck/pkg/combos/parser/control"
	"combocheck/pkg/combos/parser/definition"
	"combocheck/pkg/combos/parser/devicelog"
	"combocheck/pkg/logger"
)

// Params configures one pipeline run. DefinitionPath and DeviceLogPath name
// the two mandatory sources; CapabilityPath and ControlDir are optional.
type Params struct {
	DefinitionPath string
	DeviceLogPath  string
	CapabilityPath string
	ControlDir     string

	RulesDir string
	Region   string
	Policy   string

	// SizeLimit bounds each input document in bytes. Zero means the
	// parser default.
	SizeLimit int64
}

// Run executes the pipeline. The three document parses run in parallel; a
// missing mandatory source degrades the run with a warning, while a
// size-limit violation or context cancellation aborts it. When both mandatory
// sources are absent the run fails with combos.ErrNoUsableInput. The returned
// result always distinguishes "no discrepancies" from "could not analyze":
// every degraded category carries a warning.
func Run(ctx context.Context, params Params) (*combos.AnalysisResult, error) {
	var (
		defResult  parser.Result
		logResult  parser.Result
		capResult  parser.Result
		defPresent bool
		logPresent bool
		capPresent bool
	)

	var group errgroup.Group

	group.Go(func() error {
		var err error
		defResult, defPresent, err = parseSource(combos.SourceDefinition, params.DefinitionPath, params.SizeLimit, definition.Parse)
		return err
	})
	group.Go(func() error {
		var err error
		logResult, logPresent, err = parseSource(combos.SourceDeviceLog, params.DeviceLogPath, params.SizeLimit, devicelog.Parse)
		return err
	})
	group.Go(func() error {
		var err error
		capResult, capPresent, err = parseSource(combos.SourceCapability, params.CapabilityPath, params.SizeLimit, capability.Parse)
		return err
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}
	// The parses do no blocking I/O beyond bounded file reads, so the
	// caller's timeout is honored between stages rather than mid-parse.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !defPresent && !logPresent {
		return nil, combos.ErrNoUsableInput
	}

	analyzeParams := combos.AnalyzeParams{
		Definition: defResult.Sets,
		Realized:   logResult.Sets,
		InputFiles: inputFiles(params),
	}
	analyzeParams.Warnings = append(analyzeParams.Warnings, defResult.Warnings...)
	analyzeParams.Warnings = append(analyzeParams.Warnings, logResult.Warnings...)
	analyzeParams.Warnings = append(analyzeParams.Warnings, capResult.Warnings...)
	if capPresent {
		analyzeParams.Advertised = capResult.Sets
	}

	var controlState control.State
	if params.ControlDir != "" {
		controlState = control.ParseDir(params.ControlDir)
		analyzeParams.PrunedKeys = controlState.PrunedKeys()
		analyzeParams.Warnings = append(analyzeParams.Warnings, controlState.Warnings...)
		logger.Debug("[Pipeline] control files loaded",
			"pruned", len(controlState.Pruned),
			"ca_disabled", controlState.CADisabled,
			"nrca_enabled", controlState.NRCAEnabled,
			"nrdc_enabled", controlState.NRDCEnabled,
		)
	} else {
		controlState = control.NewState()
	}

	result, err := combos.Analyze(analyzeParams)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	applyCapabilityGates(result, controlState)

	kbCtx := knowledge.Load(params.RulesDir, params.Region, params.Policy)
	result.Warnings = append(result.Warnings, kbCtx.Warnings...)

	result.Discrepancies = knowledge.EnrichAll(result.Discrepancies, kbCtx)
	result.RefreshSummary()

	logger.Info("[Pipeline] analysis complete",
		"id", result.ID,
		"discrepancies", len(result.Discrepancies),
		"warnings", len(result.Warnings),
	)

	return result, nil
}

// parseSource reads and parses one document. A missing or unconfigured file
// is a degraded mode: the returned result is empty and not marked present,
// with a warning attached when a path was configured. Size-limit violations
// propagate and abort the run.
func parseSource(source combos.Source, path string, limit int64, parse func([]byte) parser.Result) (parser.Result, bool, error) {
	if path == "" {
		result := parser.NewResult(source)
		if source != combos.SourceCapability {
			result.Warnf("%s: no input file configured", source)
		}
		return result, false, nil
	}

	content, err := parser.ReadFile(path, limit)
	if err != nil {
		if errors.Is(err, combos.ErrMissingInput) {
			result := parser.NewResult(source)
			result.Warnf("%s: %v", source, err)
			logger.Warn("[Pipeline] source missing, continuing degraded", "source", string(source), "path", path)
			return result, false, nil
		}
		return parser.Result{}, false, err
	}

	result := parse(content)
	logger.Debug("[Pipeline] source parsed",
		"source", string(source),
		"combos", result.TotalCombos(),
		"warnings", len(result.Warnings),
	)
	return result, true, nil
}

// applyCapabilityGates folds the whole-category control flags into the
// result: a category that a control file disables outright turns its
// missing-downstream findings into pruned-by-control findings, same as a
// per-combination pruning entry would.
func applyCapabilityGates(result *combos.AnalysisResult, state control.State) {
	disabled := make(map[combos.Category]bool)
	if state.CADisabled {
		disabled[combos.CategoryLTECA] = true
		result.Warnings = append(result.Warnings, "control: carrier aggregation disabled by control file")
	}
	if !state.NRCAEnabled {
		disabled[combos.CategoryNRCA] = true
		result.Warnings = append(result.Warnings, "control: NR aggregation disabled by control file")
	}
	if !state.NRDCEnabled {
		disabled[combos.CategoryNRDC] = true
		result.Warnings = append(result.Warnings, "control: NR dual connectivity disabled by control file")
	}
	if len(disabled) == 0 {
		return
	}

	for i, d := range result.Discrepancies {
		if d.Kind != combos.KindMissingDownstream || !disabled[d.Combo.Category] {
			continue
		}
		result.Discrepancies[i].Kind = combos.KindPrunedByControl
		result.Discrepancies[i].Details = "combination category disabled by control file flag"
	}
}

func inputFiles(params Params) map[combos.Source]string {
	files := make(map[combos.Source]string)
	if params.DefinitionPath != "" {
		files[combos.SourceDefinition] = filepath.Base(params.DefinitionPath)
	}
	if params.DeviceLogPath != "" {
		files[combos.SourceDeviceLog] = filepath.Base(params.DeviceLogPath)
	}
	if params.CapabilityPath != "" {
		files[combos.SourceCapability] = filepath.Base(params.CapabilityPath)
	}
	if params.ControlDir != "" {
		files[combos.SourceControl] = filepath.Base(params.ControlDir)
	}
	return files
}
