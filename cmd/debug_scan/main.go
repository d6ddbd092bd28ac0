package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"nutriscan/pkg/label"
	"nutriscan/pkg/scan"
)

func main() {
	file := flag.String("file", "", "label image to scan")
	claims := flag.String("claims", "", "comma separated claim strings")
	timeout := flag.Duration("timeout", 30*time.Second, "per-region OCR timeout")
	flag.Parse()
	if *file == "" {
		log.Fatalf("-file required")
	}

	img, err := imaging.Open(*file)
	if err != nil {
		log.Fatalf("open image: %v", err)
	}

	p := scan.New(&label.TesseractExtractor{})
	p.OCRTimeout = *timeout

	var claimList []string
	for _, c := range strings.Split(*claims, ",") {
		if c = strings.TrimSpace(c); c != "" {
			claimList = append(claimList, c)
		}
	}

	res, err := p.Process(context.Background(), label.LabelImage{Pixels: img, Format: "file"}, claimList)
	if err != nil {
		log.Fatalf("scan error: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatalf("encode result: %v", err)
	}
	fmt.Fprintf(os.Stderr, "overall=%.3f trust=%.3f compliant=%v\n",
		res.Confidence.Overall, res.Verification.TrustScore, res.Verification.OverallCompliance)
}
