package receipt

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/georgemunganga/pantry-backend/internal/modules/boundary"
	"github.com/georgemunganga/pantry-backend/internal/modules/ocr"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CameraState is the lifecycle of the capture device within a session.
type CameraState string

const (
	CameraIdle                 CameraState = "idle"
	CameraRequestingPermission CameraState = "requesting_permission"
	CameraActive               CameraState = "active"
	CameraError                CameraState = "error"
)

// OCRState is the lifecycle of recognition within a session.
// OCRCapturing means a photo was accepted and is waiting to be processed.
type OCRState string

const (
	OCRIdle       OCRState = "idle"
	OCRCapturing  OCRState = "capturing"
	OCRProcessing OCRState = "processing"
	OCRError      OCRState = "error"
	OCRComplete   OCRState = "complete"
)

var (
	ErrInvalidState = errors.New("operation not allowed in current session state")
	ErrNoImage      = errors.New("no captured image")
	ErrSessionEnded = errors.New("receipt session ended")
	// ErrSuperseded is returned when the session moved on while a call was in flight.
	ErrSuperseded = errors.New("operation superseded by a newer one")
)

// State is a read-only snapshot of a session.
type State struct {
	ID                 uuid.UUID              `json:"id"`
	CameraState        CameraState            `json:"camera_state"`
	OCRState           OCRState               `json:"ocr_state"`
	CapturedImage      string                 `json:"captured_image,omitempty"`
	ProcessingProgress int                    `json:"processing_progress"`
	ShowProgress       bool                   `json:"show_progress"`
	Error              string                 `json:"error,omitempty"`
	StreamActive       bool                   `json:"stream_active"`
	Candidates         []ocr.Candidate        `json:"candidates,omitempty"`
	Result             *ocr.RecognitionResult `json:"result,omitempty"`
	Boundary           boundary.Status        `json:"boundary"`
	Ended              bool                   `json:"ended"`
}

// Outcome is the product of a successful recognition.
type Outcome struct {
	Result     *ocr.RecognitionResult `json:"result"`
	Candidates []ocr.Candidate        `json:"candidates"`
}

// Session coordinates one receipt capture: camera access, photo review and OCR.
// The session is the only owner of its camera stream and closes it on every
// path out of the active camera state.
type Session struct {
	mu       sync.Mutex
	id       uuid.UUID
	camera   Camera
	provider ocr.Provider
	boundary *boundary.Boundary
	logger   *zap.Logger

	cameraState CameraState
	ocrState    OCRState
	stream      Stream
	image       *ocr.Image
	progress    int
	errMsg      string
	candidates  []ocr.Candidate
	result      *ocr.RecognitionResult
	// epoch changes whenever in-flight camera or OCR results must be discarded.
	epoch uint64
	ended bool
}

func NewSession(camera Camera, provider ocr.Provider, logger *zap.Logger) *Session {
	id := uuid.New()
	logger = logger.With(zap.String("session_id", id.String()))
	return &Session{
		id:          id,
		camera:      camera,
		provider:    provider,
		boundary:    boundary.New("receipt", logger),
		logger:      logger,
		cameraState: CameraIdle,
		ocrState:    OCRIdle,
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

// Start requests camera access for a new session.
func (s *Session) Start(ctx context.Context) error {
	epoch, err := s.beginCameraRequest("start", CameraIdle)
	if err != nil {
		return err
	}
	return s.openCamera(ctx, epoch)
}

// Retry requests camera access again after a permission or device error.
func (s *Session) Retry(ctx context.Context) error {
	epoch, err := s.beginCameraRequest("retry", CameraError)
	if err != nil {
		return err
	}
	return s.openCamera(ctx, epoch)
}

// Capture snapshots the current frame for review. It does not change the OCR state.
// The frame is read without holding the session lock.
func (s *Session) Capture(ctx context.Context) error {
	s.mu.Lock()
	if err := s.checkOpen(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.cameraState != CameraActive || s.stream == nil || s.ocrState == OCRProcessing {
		err := s.invalid("capture")
		s.mu.Unlock()
		return err
	}
	stream, epoch := s.stream, s.epoch
	s.mu.Unlock()

	img, err := boundary.Guard(s.boundary, "camera.snapshot", ocr.Image{}, func() (ocr.Image, error) {
		return stream.Snapshot(ctx)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.ended || s.stream != stream {
		return ErrSuperseded
	}
	if err != nil {
		s.releaseStream()
		s.cameraState = CameraError
		s.errMsg = cameraErrorMessage(err)
		s.logger.Warn("snapshot failed", zap.Error(err))
		return err
	}
	s.image = &img
	return nil
}

// Retake discards the captured photo and goes back to the live camera,
// requesting a new stream when the previous one was released.
func (s *Session) Retake(ctx context.Context) error {
	s.mu.Lock()
	if err := s.checkOpen(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.ocrState == OCRProcessing || s.cameraState == CameraRequestingPermission {
		err := s.invalid("retake")
		s.mu.Unlock()
		return err
	}
	s.resetCapture()
	if s.cameraState == CameraActive && s.stream != nil {
		s.mu.Unlock()
		return nil
	}
	s.releaseStream()
	s.boundary.Reset()
	s.cameraState = CameraRequestingPermission
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()
	return s.openCamera(ctx, epoch)
}

// Accept keeps the captured photo, releases the camera and readies the photo for OCR.
func (s *Session) Accept() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.image == nil {
		return ErrNoImage
	}
	if s.ocrState != OCRIdle {
		return s.invalid("accept")
	}
	s.releaseStream()
	s.cameraState = CameraIdle
	s.ocrState = OCRCapturing
	s.epoch++
	return nil
}

// ProcessReceiptWithOCR runs the provider on img, or on the captured photo when img is nil.
// On failure the photo is kept so the call can be repeated with the same image.
func (s *Session) ProcessReceiptWithOCR(ctx context.Context, img *ocr.Image) (*Outcome, error) {
	s.mu.Lock()
	if err := s.checkOpen(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.ocrState == OCRProcessing || s.cameraState == CameraRequestingPermission {
		err := s.invalid("process")
		s.mu.Unlock()
		return nil, err
	}
	if img != nil && len(img.Data) > 0 {
		captured := *img
		s.image = &captured
	}
	if s.image == nil {
		s.mu.Unlock()
		return nil, ErrNoImage
	}
	if s.stream != nil {
		s.releaseStream()
		s.cameraState = CameraIdle
	}
	s.ocrState = OCRProcessing
	s.progress = 0
	s.errMsg = ""
	s.candidates = nil
	s.result = nil
	s.epoch++
	epoch := s.epoch
	image := *s.image
	s.mu.Unlock()

	s.logger.Info("ocr started", zap.Int("image_bytes", len(image.Data)))
	res, err := boundary.Guard(s.boundary, "ocr.process", (*ocr.RecognitionResult)(nil), func() (*ocr.RecognitionResult, error) {
		return s.provider.Process(ctx, image, func(p int) { s.setProgress(epoch, p) })
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.ended {
		return nil, ErrSuperseded
	}
	if err == nil && res == nil {
		err = errors.New("provider returned no result")
	}
	if err != nil {
		if !errors.Is(err, ocr.ErrOCR) {
			err = fmt.Errorf("%w: %w", ocr.ErrOCR, err)
		}
		s.ocrState = OCRError
		s.errMsg = err.Error()
		s.logger.Warn("ocr failed", zap.Error(err))
		return nil, err
	}

	s.ocrState = OCRComplete
	s.progress = 100
	s.result = res
	s.candidates = ocr.ParseReceipt(res.RawText)
	s.logger.Info("ocr complete",
		zap.String("provider", res.Provider),
		zap.Int64("processing_time_ms", res.ProcessingTimeMs),
		zap.Int("candidates", len(s.candidates)))
	return &Outcome{Result: res, Candidates: slices.Clone(s.candidates)}, nil
}

// ClearError drops the current error message and resets the failure boundary.
// After an OCR error the session returns to the accepted-photo state, ready to process again.
func (s *Session) ClearError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.boundary.Reset()
	s.errMsg = ""
	if s.ocrState == OCRError {
		if s.image != nil {
			s.ocrState = OCRCapturing
		} else {
			s.ocrState = OCRIdle
		}
	}
	return nil
}

// CancelToCamera abandons the current photo and recognition and reopens the camera.
func (s *Session) CancelToCamera(ctx context.Context) error {
	s.mu.Lock()
	if err := s.checkOpen(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.ocrState == OCRProcessing || s.cameraState == CameraRequestingPermission {
		err := s.invalid("cancel")
		s.mu.Unlock()
		return err
	}
	s.releaseStream()
	s.resetCapture()
	s.boundary.Reset()
	s.cameraState = CameraRequestingPermission
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()
	return s.openCamera(ctx, epoch)
}

// End tears the session down and releases the camera. Results of in-flight calls are discarded.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.releaseStream()
	s.ended = true
	s.epoch++
	s.cameraState = CameraIdle
	if s.ocrState == OCRProcessing {
		s.ocrState = OCRIdle
	}
	s.logger.Debug("receipt session ended")
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		ID:                 s.id,
		CameraState:        s.cameraState,
		OCRState:           s.ocrState,
		ProcessingProgress: s.progress,
		ShowProgress:       s.ocrState == OCRProcessing && s.progress > 0 && s.progress < 100,
		Error:              s.errMsg,
		StreamActive:       s.stream != nil,
		Candidates:         slices.Clone(s.candidates),
		Boundary:           s.boundary.Status(),
		Ended:              s.ended,
	}
	if s.image != nil {
		st.CapturedImage = s.image.DataURL()
	}
	if s.result != nil {
		r := *s.result
		st.Result = &r
	}
	return st
}

// CapturedImage returns the photo held by the session, if any.
func (s *Session) CapturedImage() (ocr.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image == nil {
		return ocr.Image{}, false
	}
	return *s.image, true
}

// beginCameraRequest moves the camera to requesting_permission when it is in one of from.
func (s *Session) beginCameraRequest(op string, from ...CameraState) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if s.ocrState == OCRProcessing || !slices.Contains(from, s.cameraState) {
		return 0, s.invalid(op)
	}
	s.releaseStream()
	s.boundary.Reset()
	s.errMsg = ""
	s.cameraState = CameraRequestingPermission
	s.epoch++
	return s.epoch, nil
}

// openCamera performs the permission request without holding the lock and applies the result.
func (s *Session) openCamera(ctx context.Context, epoch uint64) error {
	var stream Stream
	err := s.boundary.Run("camera.open", func() error {
		var err error
		stream, err = s.camera.Open(ctx)
		return err
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.ended {
		if stream != nil {
			stream.Close()
		}
		return ErrSuperseded
	}
	if err != nil {
		if stream != nil {
			stream.Close()
		}
		s.cameraState = CameraError
		s.errMsg = cameraErrorMessage(err)
		s.logger.Warn("camera request failed", zap.Error(err))
		return err
	}
	s.stream = stream
	s.cameraState = CameraActive
	s.ocrState = OCRIdle
	return nil
}

func (s *Session) setProgress(epoch uint64, percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.ocrState != OCRProcessing {
		return
	}
	percent = min(max(percent, 0), 100)
	if percent > s.progress {
		s.progress = percent
	}
}

func (s *Session) resetCapture() {
	s.image = nil
	s.candidates = nil
	s.result = nil
	s.progress = 0
	s.errMsg = ""
	s.ocrState = OCRIdle
}

func (s *Session) releaseStream() {
	if s.stream == nil {
		return
	}
	if err := s.stream.Close(); err != nil {
		s.logger.Warn("failed to release camera stream", zap.Error(err))
	}
	s.stream = nil
}

func (s *Session) checkOpen() error {
	if s.ended {
		return ErrSessionEnded
	}
	return nil
}

func (s *Session) invalid(op string) error {
	return fmt.Errorf("%w: %s with camera %s and ocr %s", ErrInvalidState, op, s.cameraState, s.ocrState)
}

func cameraErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrPermission):
		return "Camera access was denied. Allow camera access and try again."
	case errors.Is(err, ErrDeviceUnavailable):
		return "No camera is available on this device."
	default:
		return "Unable to access the camera: " + err.Error()
	}
}
