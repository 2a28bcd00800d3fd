package printer

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"dpu414-print/internal/escp"
	"dpu414-print/internal/imaging"
)

// Kind names a job variant.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Job is a single print request. It is either a TextJob or an ImageJob.
type Job interface {
	Kind() Kind
	// encode returns the writes for the job and whether they are paced.
	encode(opts Options) (writes [][]byte, paced bool, err error)
}

// TextJob prints Content in the configured code page.
type TextJob struct {
	Content string
}

func (TextJob) Kind() Kind { return KindText }

func (j TextJob) encode(opts Options) ([][]byte, bool, error) {
	codePage := opts.CodePage
	if codePage == "" {
		codePage = escp.DefaultCodePage
	}
	data, err := escp.EncodeTextIn(codePage, j.Content)
	if err != nil {
		return nil, false, err
	}
	return [][]byte{data}, false, nil
}

// ImageJob prints a monochrome bitmap, one raster line per 8 dot band.
type ImageJob struct {
	Bitmap *imaging.Bitmap
}

func (ImageJob) Kind() Kind { return KindImage }

func (j ImageJob) encode(Options) ([][]byte, bool, error) {
	frames, err := escp.EncodeImage(j.Bitmap)
	if err != nil {
		return nil, false, err
	}
	writes := make([][]byte, len(frames))
	for i, f := range frames {
		writes[i] = f
	}
	return writes, true, nil
}

// Run encodes job, opens a session on opts.Port, sends everything and closes
// the session again on every path. Encoding happens before the port is
// claimed, so an unencodable job never touches the device.
func Run(opts Options, job Job) (err error) {
	log := opts.logger().With().
		Str("job_id", uuid.NewString()).
		Str("kind", string(job.Kind())).
		Logger()
	opts.Logger = &log

	writes, paced, err := job.encode(opts)
	if err != nil {
		log.Error().Err(err).Msg("encode failed")
		return err
	}
	if opts.MaxFrames > 0 && len(writes) > opts.MaxFrames {
		log.Warn().Int("frames", len(writes)).Int("max_frames", opts.MaxFrames).
			Msg("job exceeds the frame soft limit, sending anyway")
	}

	sess, err := Open(opts)
	if err != nil {
		log.Error().Err(err).Msg("open failed")
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			if err == nil {
				err = cerr
			} else {
				log.Warn().Err(cerr).Msg("close after failure")
			}
		}
	}()

	start := time.Now()
	log.Info().Str("port", opts.Port).Int("frames", len(writes)).Msg("sending")

	for i, w := range writes {
		send := sess.SendFrame
		if paced {
			send = sess.SendRasterLine
		}
		if err := send(w); err != nil {
			if i > 0 {
				err = &IncompleteJobError{Sent: i, Total: len(writes), Err: err}
			}
			log.Error().Err(err).Int("sent", i).Msg("send failed")
			return err
		}
	}

	log.Info().Dur("elapsed", time.Since(start)).Msg("sent")
	return nil
}

// IsTimeout reports whether err came from a write timeout, including one
// that cut an image job short.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrWriteTimeout)
}
