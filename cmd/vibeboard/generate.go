package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattyatplay-coder/vibeboard/pkg/provider"
)

type generateFlags struct {
	model       string
	engine      string
	negative    string
	width       int
	height      int
	aspectRatio string
	steps       int
	guidance    float64
	seed        int64
	count       int
	sampler     string
	scheduler   string
	loras       []string
	loraScale   float64
	sourceImage string
	mode        string
}

func (f *generateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "model identifier (abstract or backend-native)")
	cmd.Flags().StringVarP(&f.engine, "engine", "e", "", "force a specific provider, no fallback")
	cmd.Flags().StringVar(&f.negative, "negative", "", "negative prompt")
	cmd.Flags().IntVar(&f.width, "width", 0, "output width")
	cmd.Flags().IntVar(&f.height, "height", 0, "output height")
	cmd.Flags().StringVar(&f.aspectRatio, "aspect-ratio", "", "aspect ratio, e.g. 16:9")
	cmd.Flags().IntVar(&f.steps, "steps", 0, "sampling steps")
	cmd.Flags().Float64Var(&f.guidance, "guidance", 0, "guidance scale")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "seed (0 = random)")
	cmd.Flags().IntVarP(&f.count, "count", "n", 0, "number of outputs")
	cmd.Flags().StringVar(&f.sampler, "sampler", "", "sampler name")
	cmd.Flags().StringVar(&f.scheduler, "scheduler", "", "scheduler name")
	cmd.Flags().StringSliceVar(&f.loras, "lora", nil, "LoRA style adapter path (repeatable)")
	cmd.Flags().Float64Var(&f.loraScale, "lora-scale", 1.0, "LoRA strength")
}

func (f *generateFlags) request(prompt string, cfg generateDefaults) *provider.GenerationRequest {
	req := &provider.GenerationRequest{
		Prompt:         prompt,
		NegativePrompt: f.negative,
		Width:          f.width,
		Height:         f.height,
		AspectRatio:    f.aspectRatio,
		Steps:          f.steps,
		Guidance:       f.guidance,
		Seed:           f.seed,
		Model:          f.model,
		Engine:         f.engine,
		Count:          f.count,
		Sampler:        f.sampler,
		Scheduler:      f.scheduler,
	}
	for _, path := range f.loras {
		req.StyleAdapters = append(req.StyleAdapters, provider.StyleAdapter{Path: path, Strength: f.loraScale})
	}
	if req.Width == 0 && req.AspectRatio == "" {
		req.Width = cfg.width
	}
	if req.Height == 0 && req.AspectRatio == "" {
		req.Height = cfg.height
	}
	if req.Steps == 0 {
		req.Steps = cfg.steps
	}
	if req.Guidance == 0 {
		req.Guidance = cfg.guidance
	}
	if req.Count == 0 {
		req.Count = cfg.count
	}
	return req
}

type generateDefaults struct {
	width, height, steps, count int
	guidance                    float64
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate images or video",
	}
	cmd.AddCommand(newGenerateImageCmd(), newGenerateVideoCmd())
	return cmd
}

func newGenerateImageCmd() *cobra.Command {
	flags := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "image <prompt>",
		Short: "Generate one or more images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			req := flags.request(args[0], defaultsFrom(a))
			result, err := a.dispatcher.GenerateImage(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printResult(cmd, a, result, provider.MediaImage, req.Count)
		},
	}
	flags.register(cmd)
	return cmd
}

func newGenerateVideoCmd() *cobra.Command {
	flags := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "video <prompt>",
		Short: "Generate a video clip",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			prompt := ""
			if len(args) > 0 {
				prompt = args[0]
			}
			if prompt == "" && flags.sourceImage == "" {
				return fmt.Errorf("a prompt or --source-image is required")
			}

			req := flags.request(prompt, defaultsFrom(a))
			req.Mode = provider.VideoMode(flags.mode)
			if flags.sourceImage != "" {
				req.SourceImages = []string{flags.sourceImage}
				if req.Mode == "" {
					req.Mode = provider.VideoImageToVideo
				}
			}

			result, err := a.dispatcher.GenerateVideo(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printResult(cmd, a, result, provider.MediaVideo, req.Count)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&flags.sourceImage, "source-image", "", "source image for image-to-video")
	cmd.Flags().StringVar(&flags.mode, "mode", "", "video mode: text-to-video, image-to-video, interpolate, extend")
	return cmd
}

func defaultsFrom(a *app) generateDefaults {
	return generateDefaults{
		width:    a.cfg.Generation.Width,
		height:   a.cfg.Generation.Height,
		steps:    a.cfg.Generation.Steps,
		guidance: a.cfg.Generation.Guidance,
		count:    a.cfg.Generation.Count,
	}
}

func printResult(cmd *cobra.Command, a *app, result *provider.GenerationResult, media provider.MediaKind, count int) error {
	switch result.Status {
	case provider.StatusSucceeded:
		cmd.Printf("generated via %s (seed %d)\n", result.Provider, result.Seed)
		for _, out := range result.Outputs {
			cmd.Println("  " + out)
		}
		estimate := provider.EstimateCost(result.Provider, media, count)
		if estimate > 0 && estimate < provider.CostUnsupported {
			a.tracker.Record(estimate)
			cmd.Printf("estimated cost: $%.4f\n", estimate)
		}
		if warning := a.tracker.CheckBudget().GetWarningMessage(); warning != "" {
			cmd.Println(warning)
		}
		return nil
	case provider.StatusQueued, provider.StatusRunning:
		cmd.Printf("accepted by %s, still %s\n", result.Provider, result.Status)
		cmd.Printf("check later with: vibeboard status %s\n", result.ID)
		return nil
	default:
		return provider.AggregateError(result)
	}
}
