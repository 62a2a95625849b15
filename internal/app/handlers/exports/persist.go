package exports

import (
	"context"
	"errors"
	"fmt"

	"stayregister/internal/app/failures"
)

// ErrSaveUnsupported is returned by a SavePicker that cannot save in the
// current environment; Persist then falls back to a download.
var ErrSaveUnsupported = errors.New("exports: save not supported")

const (
	MethodSaved    = "saved"
	MethodDownload = "download"
)

type Outcome struct {
	Method   string
	Location string
	Message  string
}

// SavePicker stores the file at a location of its choosing.
type SavePicker interface {
	Save(ctx context.Context, name string, pdf []byte) (location string, err error)
}

// Fallback hands the file to the client directly.
type Fallback interface {
	Deliver(ctx context.Context, name string, pdf []byte) (Outcome, error)
}

// DownloadFallback leaves delivery to the HTTP layer, which streams the file
// as an attachment.
type DownloadFallback struct{}

func (DownloadFallback) Deliver(_ context.Context, name string, _ []byte) (Outcome, error) {
	return Outcome{
		Method:  MethodDownload,
		Message: fmt.Sprintf("%s was downloaded; check your downloads folder.", name),
	}, nil
}

// Persist tries picker first and uses fallback when the picker is absent or
// reports ErrSaveUnsupported. Any other picker failure, including
// cancellation, is a *failures.SaveError: the PDF exists but was not kept.
func Persist(ctx context.Context, picker SavePicker, fallback Fallback, name string, pdf []byte) (Outcome, error) {
	if fallback == nil {
		fallback = DownloadFallback{}
	}
	if picker != nil {
		location, err := picker.Save(ctx, name, pdf)
		switch {
		case err == nil:
			return Outcome{
				Method:   MethodSaved,
				Location: location,
				Message:  fmt.Sprintf("%s was saved to %s.", name, location),
			}, nil
		case !errors.Is(err, ErrSaveUnsupported):
			return Outcome{}, failures.Save(err)
		}
	}
	out, err := fallback.Deliver(ctx, name, pdf)
	if err != nil {
		return Outcome{}, failures.Save(err)
	}
	return out, nil
}
