package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"

	"github.com/fathima-sithara/mycloud/internal/events"
	"github.com/fathima-sithara/mycloud/internal/gallery"
	models "github.com/fathima-sithara/mycloud/internal/media"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your media of the selected kind",
	RunE: func(cmd *cobra.Command, args []string) error {
		printCards(sess.view.Cards())
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keywords, _ := cmd.Flags().GetString("keywords")
		vis, _ := cmd.Flags().GetString("visibility")
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		m, err := sess.client.Upload(background(cmd), filepath.Base(args[0]), "", f, keywords, models.Visibility(vis))
		if err != nil {
			return err
		}
		sess.bus.Publish()
		fmt.Printf("uploaded %s (%s)\n", m.Filename, m.ID)
		return nil
	},
}

var openCmd = &cobra.Command{
	Use:   "open <id|filename>",
	Short: "Open an item in the browser",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := item(args[0])
		if err != nil {
			return err
		}
		return sess.actions.Open(background(cmd), m)
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <id|filename>",
	Short: "Save an item under its original filename",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		m, err := item(args[0])
		if err != nil {
			return err
		}
		path, err := sess.actions.Download(background(cmd), m, dir)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var linkCmd = &cobra.Command{
	Use:   "link <id|filename>",
	Short: "Copy a shareable link to the clipboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := item(args[0])
		if err != nil {
			return err
		}
		u, err := sess.actions.CopyLink(background(cmd), m)
		if err != nil {
			return err
		}
		fmt.Println(u)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id|filename>",
	Short: "Delete an item and its stored bytes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		m, err := item(args[0])
		if err != nil {
			return err
		}
		if c, ok := sess.actions.Confirmer.(stdinConfirmer); ok {
			c.yes = yes
			sess.actions.Confirmer = c
		}
		err = sess.actions.Delete(background(cmd), m)
		if errors.Is(err, gallery.ErrCancelled) {
			fmt.Println("cancelled")
			return nil
		}
		return err
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id|filename>",
	Short: "Change keywords and visibility",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := item(args[0])
		if err != nil {
			return err
		}
		form := sess.actions.EditForm(m)
		if cmd.Flags().Changed("keywords") {
			form.Keywords, _ = cmd.Flags().GetString("keywords")
		}
		if cmd.Flags().Changed("visibility") {
			v, _ := cmd.Flags().GetString("visibility")
			form.Visibility = models.Visibility(v)
		}
		updated, err := form.Submit(background(cmd))
		if err != nil {
			return err
		}
		fmt.Printf("%s: keywords=%q visibility=%s\n", updated.Filename, updated.Keywords, updated.Visibility)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow changes to your media and keep the list current",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(background(cmd), os.Interrupt)
		defer stop()

		printCards(sess.view.Cards())
		unsub := sess.bus.Subscribe(func() {
			if err := sess.view.Refresh(ctx); err == nil {
				printCards(sess.view.Cards())
			}
		})
		defer unsub()
		err := gallery.Watch(ctx, sess.client, sess.bus, func(ev events.Event) {
			sess.log.Infow("media event", "type", ev.Type, "media_id", ev.MediaID)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	uploadCmd.Flags().String("keywords", "", "search keywords")
	uploadCmd.Flags().String("visibility", "", "private or public (default private)")
	downloadCmd.Flags().String("dir", ".", "destination directory")
	deleteCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	editCmd.Flags().String("keywords", "", "new keywords")
	editCmd.Flags().String("visibility", "", "private or public")
}

func printCards(cards []gallery.Card) {
	if len(cards) == 0 {
		fmt.Println("nothing here yet")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tFILENAME\tVISIBILITY\tKEYWORDS")
	for _, c := range cards {
		mark := " "
		if c.Placeholder {
			mark = c.Glyph
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", mark, c.Media.ID, c.Media.Filename, c.Media.Visibility, c.Media.Keywords)
	}
	_ = w.Flush()
}
