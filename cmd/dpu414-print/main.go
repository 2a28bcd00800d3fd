package main

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"dpu414-print/internal/config"
	"dpu414-print/internal/escp"
	"dpu414-print/internal/imaging"
	"dpu414-print/internal/printer"
)

const (
	AppVersion = "1.0.0"
	AppName    = "dpu414-print"
)

var exampleUsage = strings.TrimSpace(`
  dpu414-print text --port /dev/ttyUSB0 "Hello, printer"
  echo "Kvittering" | dpu414-print text --port COM3 --baud 19200
  dpu414-print image --port /dev/ttyUSB0 --dither logo.png
  dpu414-print render --port /dev/ttyUSB0 --vertical "SALE"
  dpu414-print qr --port /dev/ttyUSB0 https://example.com
  dpu414-print preview logo.png -o logo-mono.png
`)

type App struct {
	cfg     config.Config
	cfgPath string
	log     zerolog.Logger

	// Command options
	output        string
	qrLevel       string
	vertical      bool
	wordBreakOnly bool
	textInvert    bool
}

func main() {
	a := &App{
		cfg: config.DefaultConfig(),
		log: config.Logger("info"),
	}

	if err := a.rootCommand().Execute(); err != nil {
		a.log.Error().Err(err).Msg(AppName)
		os.Exit(1)
	}
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               AppName,
		Short:             "Print text and images on a DPU-414 printer over a serial line",
		Example:           exampleUsage,
		Version:           fmt.Sprintf("%s %s/%s", AppVersion, runtime.GOOS, runtime.GOARCH),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.loadConfig(cmd) },
	}

	cfg := &a.cfg
	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.dpu414/config.toml)")
	flags.StringVarP(&cfg.Port, "port", "p", cfg.Port, "serial port, e.g. /dev/ttyUSB0 or COM3")
	flags.IntVarP(&cfg.Baud, "baud", "b", cfg.Baud, "baud rate (9600, 19200, 38400, 57600, 115200 or any positive value)")
	flags.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "serial read timeout")
	flags.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "timeout for each write and flush (0 waits forever)")
	flags.DurationVar(&cfg.Pace, "pace", cfg.Pace, "pause after each raster line (0 disables)")
	flags.StringVar(&cfg.CodePage, "codepage", cfg.CodePage, "text code page: "+strings.Join(escp.CodePages(), ", "))
	flags.IntVar(&cfg.Width, "width", cfg.Width, fmt.Sprintf("raster width in dots (at most %d)", imaging.MaxWidth))
	flags.IntVar(&cfg.Threshold, "threshold", cfg.Threshold, "gray level below which a dot is printed (0-255)")
	flags.BoolVar(&cfg.Dither, "dither", cfg.Dither, "Floyd-Steinberg dithering instead of a plain threshold")
	flags.BoolVar(&cfg.Invert, "invert", cfg.Invert, "invert the image after conversion")
	flags.StringVar(&cfg.Resample, "resample", cfg.Resample, "resample filter: "+strings.Join(imaging.ResampleFilters(), ", "))
	flags.Float64Var(&cfg.FontSize, "font-size", cfg.FontSize, "font size in points for the render command")
	flags.IntVar(&cfg.MaxFrames, "max-frames", cfg.MaxFrames, "warn when an image needs more raster lines than this (0 disables)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")

	root.AddCommand(
		a.textCommand(),
		a.imageCommand(),
		a.renderCommand(),
		a.qrCommand(),
		a.previewCommand(),
	)
	return root
}

// loadConfig applies the config file, then DPU414_* variables, under the
// flags given on the command line.
func (a *App) loadConfig(cmd *cobra.Command) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = config.DefaultConfigPath()
	}
	if cfgFile != "" && config.FileExists(cfgFile) {
		fc, err := config.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := config.ApplyFileConfig(&a.cfg, fc, changed); err != nil {
			return err
		}
	} else if a.cfgPath != "" {
		return fmt.Errorf("config file %s not found", a.cfgPath)
	}

	if err := config.ApplyEnvConfig(&a.cfg, changed); err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	a.log = config.Logger(a.cfg.LogLevel)
	a.log.Debug().Interface("config", a.cfg).Msg("configuration")
	return nil
}

func (a *App) textCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "text [TEXT...]",
		Short: "Print plain text in the printer's character set (reads stdin without arguments)",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := textArg(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			if err := a.send(printer.TextJob{Content: content}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Text sent to printer")
			return nil
		},
	}
}

func (a *App) imageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "image PATH",
		Short: "Print a png, jpeg, gif, bmp or webp image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := imaging.LoadImage(args[0])
			if err != nil {
				return err
			}
			return a.sendImage(cmd, img)
		},
	}
}

func (a *App) renderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [TEXT...]",
		Short: "Draw text with a TrueType font and print it as an image",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := textArg(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			opts := a.cfg.TextOptions()
			opts.WordBreakOnly = a.wordBreakOnly
			opts.Invert = a.textInvert
			if a.vertical {
				opts.Orientation = imaging.Vertical
			}

			img, err := imaging.RenderText(content, a.cfg.Width, opts)
			if err != nil {
				return fmt.Errorf("render text: %w", err)
			}
			return a.sendImage(cmd, img)
		},
	}
	cmd.Flags().BoolVar(&a.vertical, "vertical", false, "run the text along the paper, for banners")
	cmd.Flags().BoolVar(&a.wordBreakOnly, "word-break", false, "only break lines between words")
	cmd.Flags().BoolVar(&a.textInvert, "text-invert", false, "white text on black")
	return cmd
}

func (a *App) qrCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qr CONTENT",
		Short: "Print a QR code spanning the raster width",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := imaging.QRCode(args[0], a.cfg.Width, a.qrLevel)
			if err != nil {
				return err
			}
			return a.sendImage(cmd, img)
		},
	}
	cmd.Flags().StringVar(&a.qrLevel, "level", "medium", "error recovery level: low, medium, high, highest")
	return cmd
}

func (a *App) previewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview PATH",
		Short: "Write the monochrome conversion of an image as PNG without printing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := imaging.LoadImage(args[0])
			if err != nil {
				return err
			}
			bm, err := imaging.Monochrome(img, a.cfg.ImageOptions())
			if err != nil {
				return err
			}

			if err := writePNG(a.output, bm.Image()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%dx%d, %d raster lines, written to %s\n",
				bm.Width, bm.Height, escp.BandCount(bm.Height), a.output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&a.output, "output", "o", "preview.png", "output PNG path")
	return cmd
}

func (a *App) sendImage(cmd *cobra.Command, img image.Image) error {
	bm, err := imaging.Monochrome(img, a.cfg.ImageOptions())
	if err != nil {
		return err
	}
	a.log.Debug().Int("width", bm.Width).Int("height", bm.Height).Msg("image converted")

	if err := a.send(printer.ImageJob{Bitmap: bm}); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Image sent to printer")
	return nil
}

func (a *App) send(job printer.Job) error {
	if err := a.cfg.RequirePort(); err != nil {
		return err
	}
	return sendError(printer.Run(a.cfg.PrinterOptions(&a.log), job))
}

// sendError adds a hint for the usual cause of a write timeout.
func sendError(err error) error {
	if printer.IsTimeout(err) {
		return fmt.Errorf("printer not responding (check power, paper and baud rate): %w", err)
	}
	return err
}

// textArg joins the arguments, or reads stdin when there are none. A single
// trailing line break from stdin is dropped since the encoder adds its own.
func textArg(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	s := strings.TrimSuffix(string(b), "\n")
	return strings.TrimSuffix(s, "\r"), nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
