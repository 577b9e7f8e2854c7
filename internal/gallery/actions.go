package gallery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	models "github.com/fathima-sithara/mycloud/internal/media"
)

type Opener interface {
	Open(url string) error
}

type Clipboard interface {
	WriteAll(text string) error
}

type Confirmer interface {
	Confirm(prompt string) bool
}

// ErrCancelled is returned when the user declines a confirmation.
var ErrCancelled = errors.New("cancelled")

// Actions are the per-item menu entries. Every failure is also reported through the Notifier.
type Actions struct {
	Client    *Client
	Bus       *Bus
	Notifier  Notifier
	Opener    Opener
	Clipboard Clipboard
	Confirmer Confirmer
}

func (a *Actions) fail(err error) error {
	reportError(a.Notifier, err)
	return err
}

func (a *Actions) ok(msg string) {
	if a.Notifier != nil {
		a.Notifier.Success(msg)
	}
}

// Open views the item through its share link.
func (a *Actions) Open(ctx context.Context, m *models.Media) error {
	u, err := a.Client.ShareURL(ctx, m.ID)
	if err != nil {
		return a.fail(err)
	}
	if err := a.Opener.Open(u); err != nil {
		return a.fail(err)
	}
	return nil
}

// Download saves the item's own bytes as dir/<original filename>. The bytes land
// in a temp file first, which is removed on every path.
func (a *Actions) Download(ctx context.Context, m *models.Media, dir string) (string, error) {
	tmp, err := os.CreateTemp(dir, ".mycloud-*.part")
	if err != nil {
		return "", a.fail(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := a.Client.DownloadItem(ctx, m.ID, tmp); err != nil {
		tmp.Close()
		return "", a.fail(err)
	}
	if err := tmp.Close(); err != nil {
		return "", a.fail(err)
	}
	dst := filepath.Join(dir, filepath.Base(m.Filename))
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", a.fail(err)
	}
	a.ok(m.Kind().Label() + " Downloaded Successfully")
	return dst, nil
}

func (a *Actions) CopyLink(ctx context.Context, m *models.Media) (string, error) {
	u, err := a.Client.ShareURL(ctx, m.ID)
	if err != nil {
		return "", a.fail(err)
	}
	if err := a.Clipboard.WriteAll(u); err != nil {
		return "", a.fail(err)
	}
	a.ok("Link copied to clipboard")
	return u, nil
}

// Delete asks for confirmation, deletes, and tells every view to refresh.
func (a *Actions) Delete(ctx context.Context, m *models.Media) error {
	if a.Confirmer == nil || !a.Confirmer.Confirm(fmt.Sprintf("Delete %s?", m.Filename)) {
		return ErrCancelled
	}
	msg, err := a.Client.Delete(ctx, m.ID)
	if err != nil {
		return a.fail(err)
	}
	if msg == "" {
		msg = m.Kind().Label() + " Deleted Successfully"
	}
	if a.Bus != nil {
		a.Bus.Publish()
	}
	a.ok(msg)
	return nil
}

// EditForm opens the edit form pre-populated with the item's current values.
func (a *Actions) EditForm(m *models.Media) *EditForm {
	return &EditForm{
		actions:    a,
		media:      m,
		Keywords:   m.Keywords,
		Visibility: m.Visibility,
		open:       true,
	}
}

type EditForm struct {
	actions *Actions
	media   *models.Media
	open    bool

	Keywords   string
	Visibility models.Visibility
}

func (f *EditForm) IsOpen() bool { return f.open }

func (f *EditForm) Validate() error {
	if strings.TrimSpace(f.Keywords) == "" {
		return errors.New("keywords are required")
	}
	if _, ok := models.ParseVisibility(string(f.Visibility)); !ok {
		return errors.New("visibility must be private or public")
	}
	return nil
}

// Submit commits both fields. The form closes only on success; on failure it
// stays open with the entered values.
func (f *EditForm) Submit(ctx context.Context) (*models.Media, error) {
	if err := f.Validate(); err != nil {
		if n := f.actions.Notifier; n != nil {
			n.Error(err.Error())
		}
		return nil, err
	}
	kw := strings.TrimSpace(f.Keywords)
	vis, _ := models.ParseVisibility(string(f.Visibility))
	updated, err := f.actions.Client.Edit(ctx, f.media.ID, models.Patch{Keywords: &kw, Visibility: &vis})
	if err != nil {
		return nil, f.actions.fail(err)
	}
	f.open = false
	f.media = updated
	if f.actions.Bus != nil {
		f.actions.Bus.Publish()
	}
	f.actions.ok("File Updated Successfully")
	return updated, nil
}

func (f *EditForm) Cancel() { f.open = false }
