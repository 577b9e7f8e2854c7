package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/fathima-sithara/mycloud/internal/gallery"
	models "github.com/fathima-sithara/mycloud/internal/media"
	utils "github.com/fathima-sithara/mycloud/internal/utils"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type session struct {
	log     *zap.SugaredLogger
	client  *gallery.Client
	bus     *gallery.Bus
	view    *gallery.View
	actions *gallery.Actions
}

var sess session

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Browse and manage your cloud media from the terminal",
	Long: `gallery lists the media you uploaded and runs the per-item actions:
open, download, copy link, delete and edit.

Items are referenced by id or filename.

Examples:
  gallery list --kind video
  gallery download holiday.png --dir ~/Pictures
  gallery edit holiday.png --keywords "sunset beach" --visibility public`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.AddCommand(listCmd, uploadCmd, openCmd, downloadCmd, linkCmd, deleteCmd, editCmd, watchCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("server", envOr("MYCLOUD_SERVER", "http://localhost:8080"), "media service base URL")
	pf.String("token", os.Getenv("MYCLOUD_TOKEN"), "bearer token")
	pf.String("kind", string(models.KindImage), "view: image, video or document")
	pf.Bool("dev", false, "development logging")
}

func setup(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	server, _ := flags.GetString("server")
	token, _ := flags.GetString("token")
	kind, _ := flags.GetString("kind")
	dev, _ := flags.GetBool("dev")

	switch models.Kind(kind) {
	case models.KindImage, models.KindVideo, models.KindDocument:
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}

	logger, err := utils.NewLogger(dev, "")
	if err != nil {
		return err
	}
	notifier := gallery.LogNotifier{Log: logger}
	client := gallery.NewClient(server)
	bus := gallery.NewBus()
	view := gallery.NewView(client, models.Kind(kind), bus, notifier)

	sess = session{
		log:    logger,
		client: client,
		bus:    bus,
		view:   view,
		actions: &gallery.Actions{
			Client:    client,
			Bus:       bus,
			Notifier:  notifier,
			Opener:    urlOpener{},
			Clipboard: systemClipboard{},
			Confirmer: stdinConfirmer{in: bufio.NewReader(os.Stdin)},
		},
	}
	return view.SetIdentity(background(cmd), token)
}

// item resolves an id or filename against the loaded view.
func item(ref string) (*models.Media, error) {
	if m := sess.view.Find(ref); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("no %s named %q in your gallery", sess.view.Kind(), ref)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

type urlOpener struct{}

// Open hands url to the desktop browser and prints it when there is none.
func (urlOpener) Open(url string) error {
	if err := browser.OpenURL(url); err != nil {
		fmt.Println(url)
	}
	return nil
}

type stdinConfirmer struct {
	in  *bufio.Reader
	yes bool
}

func (s stdinConfirmer) Confirm(prompt string) bool {
	if s.yes {
		return true
	}
	fmt.Printf("%s [y/N]: ", prompt)
	line, _ := s.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func background(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
