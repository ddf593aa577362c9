// Command lookfx applies a film look to a single frame. It loads a Look
// from a YAML file, decodes a PNG or Radiance HDR input, runs the frame
// through the post-processing pipeline, and writes the result as PNG.
//
// Usage:
//
//	lookfx -input frame.hdr -look look.yaml -output out.png
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/mdouchement/hdr"
	_ "github.com/mdouchement/hdr/codec/rgbe"
	"github.com/spf13/viper"
	"golang.org/x/image/draw"

	"github.com/gogpu/framefx"
	"github.com/gogpu/framefx/device"
	_ "github.com/gogpu/framefx/device/native"
	"github.com/gogpu/framefx/vision"
)

func main() {
	var (
		input   = flag.String("input", "", "input frame (.png or .hdr)")
		lookCfg = flag.String("look", "", "look config (.yaml)")
		output  = flag.String("output", "out.png", "output file")
		width   = flag.Int("width", 0, "resize width (0 = keep)")
		height  = flag.Int("height", 0, "resize height (0 = keep)")
		ftime   = flag.Float64("time", 0, "frame time in seconds (drives grain and leaks)")
		verbose = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *input == "" {
		log.Fatal("lookfx: -input is required")
	}
	if *verbose {
		framefx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	look, err := loadLook(*lookCfg)
	if err != nil {
		log.Fatalf("lookfx: %v", err)
	}

	pix, w, h, err := loadFrame(*input, *width, *height)
	if err != nil {
		log.Fatalf("lookfx: %v", err)
	}

	dev, err := device.OpenDefault()
	if err != nil {
		log.Fatalf("lookfx: open device: %v", err)
	}
	defer dev.Close()

	desc := device.FrameDescriptor(w, h)
	src, err := dev.CreateBuffer(desc, "lookfx_input")
	if err != nil {
		log.Fatalf("lookfx: %v", err)
	}
	dst, err := dev.CreateBuffer(desc, "lookfx_output")
	if err != nil {
		log.Fatalf("lookfx: %v", err)
	}
	if err := src.Upload(pix); err != nil {
		log.Fatalf("lookfx: upload: %v", err)
	}

	pipe, err := framefx.New(dev)
	if err != nil {
		log.Fatalf("lookfx: %v", err)
	}
	defer pipe.Close()

	report, err := pipe.Process(look, src, dst, float32(*ftime))
	if err != nil {
		log.Fatalf("lookfx: process: %v", err)
	}
	for _, sr := range report.Stages {
		if sr.Status == framefx.StageApplied {
			log.Printf("applied: %s", sr.Stage)
		} else if *verbose {
			log.Printf("skipped: %s (%s)", sr.Stage, sr.Reason)
		}
	}

	out := make([]float32, len(pix))
	if err := dst.Download(out); err != nil {
		log.Fatalf("lookfx: download: %v", err)
	}
	if err := savePNG(*output, out, w, h); err != nil {
		log.Fatalf("lookfx: %v", err)
	}
	log.Printf("lookfx: wrote %s (%dx%d)", *output, w, h)
}

// fileLook is the YAML shape of a Look. It mirrors framefx.Look but
// carries tints as hex strings.
type fileLook struct {
	Lens struct {
		Enabled    bool
		Distortion float32
		Aberration float32
	}
	Face struct {
		Enabled    bool
		Strength   float32
		Radius     float32
		Feather    float32
		RectExpand float32
		Landmarks  bool
	}
	Background struct {
		Enabled bool
		Sigma   float32
		Feather float32
		Quality string
	}
	Bloom struct {
		Enabled            bool
		Threshold          float32
		Knee               float32
		ClampMax           float32
		Intensity          float32
		Preservation       float32
		Radius             float32
		MipLevels          int
		FireflySuppression bool
	}
	Halation struct {
		Enabled       bool
		Threshold     float32
		Sigma         float32
		Intensity     float32
		Tint          string
		RadialFalloff bool
	}
	Anamorphic struct {
		Enabled      bool
		Threshold    float32
		StreakLength float32
		Intensity    float32
		Tint         string
	}
	Dispersion struct {
		Enabled  bool
		Strength float32
		Samples  int
	}
	LightLeak struct {
		Enabled   bool
		Intensity float32
		Tint      string
	}
	Diffusion struct {
		Enabled       bool
		Amount        float32
		HighlightBias float32
		Sigma         float32
	}
	ToneMap struct {
		Enabled             bool
		Exposure            float32
		SaturationThreshold float32
		SaturationCeiling   float32
		DisplayEncode       bool
	}
	Vignette struct {
		Enabled     bool
		SensorWidth float32
		FocalLength float32
		Intensity   float32
		Smoothness  float32
		Roundness   float32
	}
	Grain struct {
		Enabled     bool
		Intensity   float32
		Size        float32
		ShadowBoost float32
	}
}

// loadLook reads and decodes a YAML look file. An empty path yields a
// neutral look with only tone mapping and display encode enabled, so the
// output is at least displayable.
func loadLook(path string) (*framefx.Look, error) {
	if path == "" {
		return &framefx.Look{
			ToneMap: framefx.ToneMapSettings{Enabled: true, DisplayEncode: true},
		}, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read look: %w", err)
	}
	var fl fileLook
	if err := v.Unmarshal(&fl); err != nil {
		return nil, fmt.Errorf("decode look: %w", err)
	}
	return buildLook(&fl)
}

func buildLook(fl *fileLook) (*framefx.Look, error) {
	look := &framefx.Look{}

	look.Lens = framefx.LensSettings{
		Enabled:    fl.Lens.Enabled,
		Distortion: fl.Lens.Distortion,
		Aberration: fl.Lens.Aberration,
	}
	look.Face = framefx.FaceEnhanceSettings{
		Enabled:    fl.Face.Enabled,
		Strength:   fl.Face.Strength,
		Radius:     fl.Face.Radius,
		Feather:    fl.Face.Feather,
		RectExpand: fl.Face.RectExpand,
		Landmarks:  fl.Face.Landmarks,
	}
	quality, err := segmentationQuality(fl.Background.Quality)
	if err != nil {
		return nil, err
	}
	look.Background = framefx.BackgroundBlurSettings{
		Enabled: fl.Background.Enabled,
		Sigma:   fl.Background.Sigma,
		Feather: fl.Background.Feather,
		Quality: quality,
	}
	look.Bloom = framefx.BloomSettings{
		Enabled:            fl.Bloom.Enabled,
		Threshold:          fl.Bloom.Threshold,
		Knee:               fl.Bloom.Knee,
		ClampMax:           fl.Bloom.ClampMax,
		Intensity:          fl.Bloom.Intensity,
		Preservation:       fl.Bloom.Preservation,
		Radius:             fl.Bloom.Radius,
		MipLevels:          fl.Bloom.MipLevels,
		FireflySuppression: fl.Bloom.FireflySuppression,
	}

	halTint, err := tint(fl.Halation.Tint, framefx.DefaultHalationTint)
	if err != nil {
		return nil, err
	}
	look.Halation = framefx.HalationSettings{
		Enabled:       fl.Halation.Enabled,
		Threshold:     fl.Halation.Threshold,
		Sigma:         fl.Halation.Sigma,
		Intensity:     fl.Halation.Intensity,
		Tint:          halTint,
		RadialFalloff: fl.Halation.RadialFalloff,
	}

	anaTint, err := tint(fl.Anamorphic.Tint, framefx.DefaultAnamorphicTint)
	if err != nil {
		return nil, err
	}
	look.Anamorphic = framefx.AnamorphicSettings{
		Enabled:      fl.Anamorphic.Enabled,
		Threshold:    fl.Anamorphic.Threshold,
		StreakLength: fl.Anamorphic.StreakLength,
		Intensity:    fl.Anamorphic.Intensity,
		Tint:         anaTint,
	}

	leakTint, err := tint(fl.LightLeak.Tint, framefx.DefaultLeakTint)
	if err != nil {
		return nil, err
	}
	look.LightLeak = framefx.LightLeakSettings{
		Enabled:   fl.LightLeak.Enabled,
		Intensity: fl.LightLeak.Intensity,
		Tint:      leakTint,
	}

	look.Dispersion = framefx.DispersionSettings{
		Enabled:  fl.Dispersion.Enabled,
		Strength: fl.Dispersion.Strength,
		Samples:  fl.Dispersion.Samples,
	}
	look.Diffusion = framefx.DiffusionSettings{
		Enabled:       fl.Diffusion.Enabled,
		Amount:        fl.Diffusion.Amount,
		HighlightBias: fl.Diffusion.HighlightBias,
		Sigma:         fl.Diffusion.Sigma,
	}
	look.ToneMap = framefx.ToneMapSettings{
		Enabled:             fl.ToneMap.Enabled,
		Exposure:            fl.ToneMap.Exposure,
		SaturationThreshold: fl.ToneMap.SaturationThreshold,
		SaturationCeiling:   fl.ToneMap.SaturationCeiling,
		DisplayEncode:       fl.ToneMap.DisplayEncode,
	}
	look.Vignette = framefx.VignetteSettings{
		Enabled:     fl.Vignette.Enabled,
		SensorWidth: fl.Vignette.SensorWidth,
		FocalLength: fl.Vignette.FocalLength,
		Intensity:   fl.Vignette.Intensity,
		Smoothness:  fl.Vignette.Smoothness,
		Roundness:   fl.Vignette.Roundness,
	}
	look.Grain = framefx.GrainSettings{
		Enabled:     fl.Grain.Enabled,
		Intensity:   fl.Grain.Intensity,
		Size:        fl.Grain.Size,
		ShadowBoost: fl.Grain.ShadowBoost,
	}
	return look, nil
}

func segmentationQuality(s string) (vision.SegmentationQuality, error) {
	switch s {
	case "", "balanced":
		return vision.QualityBalanced, nil
	case "fast":
		return vision.QualityFast, nil
	case "accurate":
		return vision.QualityAccurate, nil
	}
	return 0, fmt.Errorf("unknown segmentation quality %q", s)
}

func tint(hex string, def [3]float32) ([3]float32, error) {
	if hex == "" {
		return def, nil
	}
	return framefx.ParseTint(hex)
}

// loadFrame decodes the input into scene-linear interleaved RGBA floats.
// Radiance HDR inputs are already linear; PNG inputs are sRGB and get
// linearized. A nonzero width/height resizes LDR inputs with Catmull-Rom.
func loadFrame(path string, width, height int) ([]float32, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	if hdrImg, ok := img.(hdr.Image); ok {
		return hdrPixels(hdrImg)
	}

	if width > 0 && height > 0 {
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
		img = scaled
	}
	return ldrPixels(img)
}

func hdrPixels(img hdr.Image) ([]float32, int, int, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]float32, w*h*4)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, _ := img.HDRAt(x, y).HDRRGBA()
			pix[i] = float32(r)
			pix[i+1] = float32(g)
			pix[i+2] = float32(bb)
			pix[i+3] = 1
			i += 4
		}
	}
	return pix, w, h, nil
}

func ldrPixels(img image.Image) ([]float32, int, int, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]float32, w*h*4)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, a := img.At(x, y).RGBA()
			pix[i] = srgbDecode(float32(r) / 65535)
			pix[i+1] = srgbDecode(float32(g) / 65535)
			pix[i+2] = srgbDecode(float32(bb) / 65535)
			pix[i+3] = float32(a) / 65535
			i += 4
		}
	}
	return pix, w, h, nil
}

func srgbDecode(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return float32(math.Pow(float64(v+0.055)/1.055, 2.4))
}

// savePNG clamps and quantizes the frame. The pipeline's display encode
// stage is expected to have produced display-referred values already;
// lookfx does not apply its own transfer curve.
func savePNG(path string, pix []float32, w, h int) error {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		img.Pix[i*4] = quantize(pix[i*4])
		img.Pix[i*4+1] = quantize(pix[i*4+1])
		img.Pix[i*4+2] = quantize(pix[i*4+2])
		img.Pix[i*4+3] = quantize(pix[i*4+3])
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func quantize(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
