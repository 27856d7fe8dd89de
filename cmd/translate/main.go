// Command translate renders a layout-preserving translation of a PDF:
// detect the page layout, wipe the original text, and draw the translated
// text into the vacated regions.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"pdf-layout-translator/internal/config"
	"pdf-layout-translator/internal/detect"
	"pdf-layout-translator/internal/governor"
	"pdf-layout-translator/internal/layout"
	"pdf-layout-translator/internal/logger"
	"pdf-layout-translator/internal/pipeline"
	"pdf-layout-translator/internal/render"
	"pdf-layout-translator/internal/translate"
	"pdf-layout-translator/internal/wipe"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file path (default: per-user config)")
		output     = flag.String("o", "", "output file path (default: <input>.translated.pdf)")
		lang       = flag.String("lang", "", "target language (overrides config)")
		model      = flag.String("model", "", "chat model (overrides config)")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: translate [flags] input.pdf [input2.pdf ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	// A .env next to the binary is a convenience for local runs; absence
	// is not an error.
	_ = godotenv.Load()

	if err := run(*configPath, flag.Args(), *output, *lang, *model, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath string, inputs []string, output, lang, model string, verbose bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if lang != "" {
		cfg.Render.TargetLang = lang
	}
	if model != "" {
		cfg.OpenAIModel = model
	}

	logCfg := logger.DefaultConfig()
	if verbose {
		logCfg.Level = logger.LevelDebug
		logCfg.EnableConsole = true
	}
	if err := logger.Init(logCfg); err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := detect.EnsureModel(cfg.ModelPath); err != nil {
		return err
	}
	detector, err := detect.NewONNX(detect.ONNXConfig{
		ModelPath:     cfg.ModelPath,
		LibraryPath:   cfg.ONNXLibraryPath,
		ConfThreshold: cfg.ConfThreshold,
	})
	if err != nil {
		return err
	}
	defer detector.Close()

	translator, err := translate.New(ctx, translate.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	})
	if err != nil {
		return err
	}

	gov := governor.New()
	orch := pipeline.NewOrchestrator(
		detector,
		layout.NewAssembler(cfg.Policy),
		wipe.NewEngine(cfg.Policy),
		render.NewEngine(cfg.Render, translator, gov),
		gov,
		cfg.DetectTimeout,
	)
	service := pipeline.NewService(cfg, orch)

	jobs := make([]pipeline.Job, 0, len(inputs))
	for _, in := range inputs {
		out := output
		if out == "" || len(inputs) > 1 {
			out = strings.TrimSuffix(in, ".pdf") + ".translated.pdf"
		}
		jobs = append(jobs, pipeline.NewJob(in, out))
	}

	results, err := service.TranslateAll(ctx, jobs)
	if err != nil {
		return err
	}
	for i, r := range results {
		if r == nil {
			continue
		}
		fmt.Printf("%s: %d pages, %d failed, %d passed through\n",
			jobs[i].InputPath, len(r.Pages), r.FailedPages, r.Passthrough)
	}
	return nil
}
