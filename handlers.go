package main

import (
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"

	"nutriscan/pkg/label"
	"nutriscan/pkg/rules"
	"nutriscan/pkg/scan"
)

type server struct {
	pipeline *scan.Pipeline
	ruleset  *rules.Ruleset
}

func setupRoutes(r *gin.Engine, s *server) {
	r.GET("/healthz", healthHandler)
	r.GET("/standards", s.standardsHandler)
	r.POST("/scan", s.scanHandler)
	r.POST("/scan/batch", s.scanBatchHandler)
	r.POST("/verify/fssai", s.verifyHandler)
	r.POST("/verify/protein", s.verifyProteinHandler)
	r.POST("/verify/expiry", s.verifyExpiryHandler)
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *server) standardsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": s.ruleset.Version, "rules": s.ruleset.Rules})
}

// decodeUpload reads one multipart file into a LabelImage.
func decodeUpload(fh *multipart.FileHeader) (label.LabelImage, error) {
	f, err := fh.Open()
	if err != nil {
		return label.LabelImage{}, err
	}
	defer f.Close()
	img, err := imaging.Decode(f)
	if err != nil {
		return label.LabelImage{}, label.ErrUndecodableImage
	}
	return label.LabelImage{Pixels: img, Format: fh.Header.Get("Content-Type")}, nil
}

// scanHandler accepts one label photo plus optional claim strings and
// returns the full extraction and compliance result.
func (s *server) scanHandler(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no image file provided"})
		return
	}
	img, err := decodeUpload(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not decode image"})
		return
	}
	claims := c.PostFormArray("claims")

	res, err := s.pipeline.Process(c.Request.Context(), img, claims)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, label.ErrUndecodableImage) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// scanBatchHandler accepts several label photos under the "images" field.
// Claims apply to every image in the batch. One bad image does not fail
// the batch; its slot carries the error.
func (s *server) scanBatchHandler(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["images"]) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no image files provided"})
		return
	}
	claims := c.PostFormArray("claims")

	inputs := make([]scan.BatchInput, 0, len(form.File["images"]))
	decodeErrs := make([]string, len(form.File["images"]))
	for i, fh := range form.File["images"] {
		img, err := decodeUpload(fh)
		if err != nil {
			decodeErrs[i] = "could not decode image"
			inputs = append(inputs, scan.BatchInput{})
			continue
		}
		inputs = append(inputs, scan.BatchInput{Image: img, Claims: claims})
	}

	items := s.pipeline.ProcessBatch(c.Request.Context(), inputs)
	type slot struct {
		Result *scan.Result `json:"result,omitempty"`
		Error  string       `json:"error,omitempty"`
	}
	out := make([]slot, len(items))
	for i, item := range items {
		switch {
		case decodeErrs[i] != "":
			out[i].Error = decodeErrs[i]
		case item.Err != nil:
			out[i].Error = item.Err.Error()
		default:
			out[i].Result = item.Result
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

type verifyRequest struct {
	NutritionFacts map[label.Nutrient]float64 `json:"nutrition_facts" binding:"required"`
	ServingSizeG   float64                    `json:"serving_size_g"`
	Claims         []string                   `json:"claims"`
}

// verifyHandler checks caller-supplied nutrition data directly against the
// rule table, skipping extraction. Supplied data is taken at face value,
// so confidence is full.
func (s *server) verifyHandler(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no nutrition data provided"})
		return
	}
	facts := label.NutritionFacts(req.NutritionFacts)
	serving := label.ServingInfo{}
	if req.ServingSizeG > 0 {
		serving.ServingSize = &label.Measure{Value: req.ServingSizeG, Unit: "g"}
	}
	conf := label.ConfidenceVector{TextClarity: 1, FieldCompleteness: 1, NumericConsistency: 1, Overall: 1}
	verification := s.pipeline.Engine.Verify(facts, serving, conf, req.Claims)
	c.JSON(http.StatusOK, gin.H{"verification": verification})
}

type proteinRequest struct {
	ProteinG     *float64 `json:"protein_g" binding:"required"`
	ServingSizeG float64  `json:"serving_size_g"`
	Claim        string   `json:"claim"`
}

// verifyProteinHandler is a convenience wrapper for the single most common
// verification: a protein claim against the declared protein content.
func (s *server) verifyProteinHandler(c *gin.Context) {
	var req proteinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "protein content not provided"})
		return
	}
	facts := label.NutritionFacts{label.Protein: *req.ProteinG}
	serving := label.ServingInfo{}
	if req.ServingSizeG > 0 {
		serving.ServingSize = &label.Measure{Value: req.ServingSizeG, Unit: "g"}
	}
	conf := label.ConfidenceVector{TextClarity: 1, FieldCompleteness: 1, NumericConsistency: 1, Overall: 1}
	claims := []string{}
	if req.Claim != "" {
		claims = append(claims, req.Claim)
	}
	verification := s.pipeline.Engine.Verify(facts, serving, conf, claims)
	c.JSON(http.StatusOK, gin.H{"verification": verification})
}

type expiryRequest struct {
	ExpiryDate string `json:"expiry_date" binding:"required"`
}

// verifyExpiryHandler checks a printed best-before/expiry date string.
func (s *server) verifyExpiryHandler(c *gin.Context) {
	var req expiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expiry date not provided"})
		return
	}
	res, err := rules.VerifyExpiry(req.ExpiryDate, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}
