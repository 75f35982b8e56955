// Package pipeline runs one radar extraction: download, extract, post-process,
// verify, and a single guarded write to the radar file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/swingdesk/radar-service/internal/analytics"
	"github.com/swingdesk/radar-service/internal/awsutil"
	"github.com/swingdesk/radar-service/internal/imageprep"
	"github.com/swingdesk/radar-service/internal/llm"
	"github.com/swingdesk/radar-service/internal/prompts"
	"github.com/swingdesk/radar-service/internal/radar"
	"github.com/swingdesk/radar-service/internal/smart2move"
	"github.com/swingdesk/radar-service/internal/usage"
)

var (
	// ErrDownload is returned when the source image cannot be fetched.
	ErrDownload = errors.New("download radar image")
	// ErrExtraction wraps every fatal extraction failure.
	ErrExtraction = errors.New("radar extraction failed")
	// ErrPersist is returned when the final write fails.
	ErrPersist = errors.New("persist radar extraction")
)

// User-facing messages stored on failed radar files.
const (
	MessageEmptyAnalysis = "Analyse Smart2Move vide."
	MessageExtraction    = "Erreur lors de l'extraction."
)

const defaultMaxImageBytes = 20 << 20

// Request is one authorized extraction of a loaded radar file.
type Request struct {
	File      *RadarFile
	Config    prompts.Config
	Markers   smart2move.Markers
	UserID    string
	RequestID string
	Origin    string
}

// Outcome is a successful extraction.
type Outcome struct {
	Status  string
	Result  Result
	Warning string
	Usage   llm.Usage
}

// Deps wires a Service.
type Deps struct {
	Files         FileStore
	S3            awsutil.S3Client
	Bucket        string
	MaxImageBytes int64
	Image         imageprep.Options
	Prompts       prompts.Store
	Extractor     *Extractor
	Verifier      *Verifier
	Analytics     analytics.Engine
	Usage         usage.Recorder
	Provider      string
	Language      string
}

// Service runs the extraction pipeline. It holds no per-request state.
type Service struct {
	Deps
}

// NewService creates a Service.
func NewService(deps Deps) *Service {
	if deps.Analytics == nil {
		deps.Analytics = analytics.Local{}
	}
	if deps.Language == "" {
		deps.Language = "fr"
	}
	if deps.MaxImageBytes <= 0 {
		deps.MaxImageBytes = defaultMaxImageBytes
	}
	return &Service{Deps: deps}
}

// Run executes the pipeline for one request. Errors wrap ErrDownload,
// ErrExtraction, ErrConflict or ErrPersist.
func (s *Service) Run(ctx context.Context, req Request) (*Outcome, error) {
	file, cfg := req.File, req.Config

	img, err := s.download(ctx, file)
	if err != nil {
		return nil, err
	}

	system, err := s.systemPrompt(ctx, cfg.ExtractSystemSection, cfg.ExtractFallbackSection, req.Markers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	instructions := prompts.TabularInstructions(cfg)
	if cfg.IsSmart2Move() {
		instructions = prompts.Smart2MoveInstructions(cfg, req.Markers)
	}

	log.Printf("Extracting radar file %s (%s, %s)", file.ID, cfg.SourceLabel, cfg.Mode)
	ext, extErr := s.Extractor.Extract(ctx, ExtractInput{
		Config:  cfg,
		System:  system,
		Prompt:  instructions,
		Image:   img,
		Markers: req.Markers,
	})

	rec := usage.Record{
		RequestID:   req.RequestID,
		OrgID:       file.OrgID,
		UserID:      req.UserID,
		RadarFileID: file.ID,
		Phase:       usage.PhaseExtract,
		Provider:    s.Provider,
		Model:       ext.Model,
		Usage:       ext.Usage,
		Origin:      req.Origin,
	}
	if extErr != nil {
		rec.ErrorType = usage.ErrorException
	}
	s.recordUsage(ctx, rec)

	if extErr != nil {
		log.Printf("ERROR extracting radar file %s (state %s): %v", file.ID, ext.State, extErr)
		if err := s.Files.MarkError(ctx, file, UserMessage(extErr)); err != nil {
			log.Printf("WARNING: could not mark radar file %s as failed: %v", file.ID, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrExtraction, extErr)
	}

	var result Result
	var snapshot string
	var snapErr error
	if cfg.IsSmart2Move() {
		result = &Smart2MoveResult{Graph: ext.Smart2Move}
		snapshot, snapErr = Smart2MoveSnapshot(ext.Smart2Move)
	} else {
		tab := s.assemble(file, cfg, ext.Tabular)
		result = tab
		snapshot, snapErr = TabularSnapshot(tab)
	}

	verification := s.verify(ctx, req, snapshot, snapErr, img)
	total := ext.Usage.Add(verification.Usage)

	if tab, ok := result.(*TabularResult); ok {
		if err := s.analyze(ctx, file, tab); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersist, err)
		}
	}

	if err := s.Files.Save(ctx, file, result, verification.Warning); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	log.Printf("Radar file %s extracted: status=%s tokens=%d warning=%q", file.ID, result.Status(), total.TotalTokens, verification.Warning)
	return &Outcome{Status: result.Status(), Result: result, Warning: verification.Warning, Usage: total}, nil
}

func (s *Service) download(ctx context.Context, file *RadarFile) (llm.Image, error) {
	bucket, key, err := awsutil.ParseObjectRef(file.FileURL, s.Bucket)
	if err != nil {
		return llm.Image{}, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	data, contentType, err := s.S3.ReadObject(ctx, bucket, key, s.MaxImageBytes)
	if err != nil {
		return llm.Image{}, fmt.Errorf("%w: %w", ErrDownload, err)
	}

	mime := file.FileMIME
	if mime == "" {
		mime = contentType
	}
	p := imageprep.Prepare(data, mime, s.Image)
	if p.Reencoded {
		log.Printf("Radar file %s: re-encoded image to %dx%d JPEG (%d → %d bytes)", file.ID, p.Width, p.Height, len(data), len(p.Data))
	}
	return llm.Image{Data: p.Data, MIMEType: p.MIMEType}, nil
}

func (s *Service) systemPrompt(ctx context.Context, primary, fallback string, markers smart2move.Markers) (string, error) {
	tmpl, err := prompts.Resolve(ctx, s.Prompts, primary, fallback)
	if err != nil {
		return "", err
	}
	return prompts.Interpolate(tmpl, map[string]string{
		"language":        s.Language,
		"tpiContextBlock": prompts.TPIContextBlock(markers),
	}), nil
}

func (s *Service) assemble(file *RadarFile, cfg prompts.Config, ext *radar.TabularExtraction) *TabularResult {
	assembled := radar.Assemble(*ext)
	log.Printf("Radar file %s: assembled %s", file.ID, assembled.Describe())

	summary := ""
	if ext.Summary != nil {
		summary = *ext.Summary
	}
	return &TabularResult{
		Source:    cfg.Source,
		Assembled: assembled,
		Metadata:  ext.Metadata,
		Summary:   summary,
	}
}

// analyze attaches analytics and fills the summary when the model gave none.
func (s *Service) analyze(ctx context.Context, file *RadarFile, tab *TabularResult) error {
	res, err := s.Analytics.Analyze(ctx, analytics.Input{
		Columns:  tab.Assembled.Columns,
		Shots:    tab.Assembled.Shots,
		Stats:    tab.Assembled.Stats,
		Config:   file.Config,
		Metadata: tab.Metadata,
	})
	if err != nil {
		return fmt.Errorf("analytics: %w", err)
	}
	tab.Analytics = res
	if tab.Summary == "" {
		tab.Summary = res.Summary
	}
	return nil
}

// verify runs the second-opinion pass. A snapshot that could not be built
// counts as an unavailable prompt.
func (s *Service) verify(ctx context.Context, req Request, snapshot string, snapErr error, img llm.Image) Verification {
	cfg := req.Config
	system, err := "", snapErr
	if err == nil {
		system, err = s.systemPrompt(ctx, cfg.VerifySystemSection, cfg.VerifyFallbackSection, req.Markers)
	}
	var v Verification
	if err != nil {
		log.Printf("WARNING: verification prompt unavailable for %s: %v", req.File.ID, err)
		v = Verification{Err: err, Warning: "Verification automatique indisponible.", Model: s.Verifier.model}
	} else {
		v = s.Verifier.Verify(ctx, VerifyInput{Config: cfg, System: system, Snapshot: snapshot, Image: img})
	}

	rec := usage.Record{
		RequestID:   req.RequestID,
		OrgID:       req.File.OrgID,
		UserID:      req.UserID,
		RadarFileID: req.File.ID,
		Phase:       usage.PhaseVerify,
		Provider:    s.Provider,
		Model:       v.Model,
		Usage:       v.Usage,
		Origin:      req.Origin,
	}
	if v.Err != nil {
		rec.ErrorType = usage.ErrorVerifyException
	}
	s.recordUsage(ctx, rec)
	return v
}

func (s *Service) recordUsage(ctx context.Context, rec usage.Record) {
	if s.Usage == nil {
		return
	}
	if err := s.Usage.Record(ctx, rec); err != nil {
		log.Printf("WARNING: usage %s for radar file %s not recorded: %v", rec.Phase, rec.RadarFileID, err)
	}
}

// UserMessage is the short French message shown for a fatal extraction error.
func UserMessage(err error) string {
	if errors.Is(err, ErrEmptyAnalysis) {
		return MessageEmptyAnalysis
	}
	return MessageExtraction
}
