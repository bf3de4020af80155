// AngelaMos | 2026
// main.go

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/carterperez-dev/templates/saas-backend/internal/avatar"
)

func main() {
	app := &cli.App{
		Name:  "avatargen",
		Usage: "render a letter or gradient avatar as SVG",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "seed",
				Aliases:  []string{"s"},
				Usage:    "name or identifier the avatar is derived from",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "variant",
				Aliases: []string{"v"},
				Usage:   "letter or gradient",
				Value:   string(avatar.VariantLetter),
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "output file, stdout when empty",
			},
		},
		Action: generate,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("avatargen failed", "error", err)
		os.Exit(1)
	}
}

func generate(c *cli.Context) error {
	variant, err := avatar.ParseVariant(c.String("variant"))
	if err != nil {
		return err
	}

	image, err := avatar.Render(c.String("seed"), variant)
	if err != nil {
		return err
	}

	out := c.String("out")
	if out == "" {
		return write(c.App.Writer, image)
	}

	//nolint:gosec // G306: generated avatars are public assets
	if err := os.WriteFile(out, image, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	slog.Info("avatar written", "path", out, "variant", variant, "bytes", len(image))
	return nil
}

func write(w io.Writer, image []byte) error {
	if _, err := w.Write(image); err != nil {
		return fmt.Errorf("write avatar: %w", err)
	}
	return nil
}
