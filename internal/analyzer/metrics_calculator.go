package analyzer

import (
	"image"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// clipLevel is the gray value at which a pixel counts as blown out
const clipLevel = 250

// metricsCalculator implements MetricsCalculator using Gonum for the statistics
type metricsCalculator struct {
	slicePool sync.Pool
}

// NewMetricsCalculator creates a new metrics calculator using Gonum
func NewMetricsCalculator() MetricsCalculator {
	return &metricsCalculator{
		slicePool: sync.Pool{
			New: func() interface{} {
				return make([]float64, 0, 1024)
			},
		},
	}
}

// CalculateBasicMetrics computes luminance, saturation and channel averages in parallel strips
func (mc *metricsCalculator) CalculateBasicMetrics(img image.Image) metrics {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width == 0 || height == 0 {
		return metrics{}
	}

	numWorkers := runtime.NumCPU()
	if height < numWorkers {
		numWorkers = height
	}
	rowsPerWorker := (height + numWorkers - 1) / numWorkers

	type regionResult struct {
		lum, sat, r, g, b float64
		pixelCount        int
	}

	results := make(chan regionResult, numWorkers)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		startY := bounds.Min.Y + i*rowsPerWorker
		if startY >= bounds.Max.Y {
			break
		}
		endY := startY + rowsPerWorker
		if endY > bounds.Max.Y {
			endY = bounds.Max.Y
		}

		wg.Add(1)
		go func(startY, endY int) {
			defer wg.Done()

			var res regionResult
			for y := startY; y < endY; y++ {
				for x := bounds.Min.X; x < bounds.Max.X; x++ {
					rVal, gVal, bVal, _ := img.At(x, y).RGBA()
					rf := float64(rVal) / 65535.0
					gf := float64(gVal) / 65535.0
					bf := float64(bVal) / 65535.0

					s, v := saturationValue(rf, gf, bf)
					res.sat += s
					res.lum += v
					res.r += rf
					res.g += gf
					res.b += bf
					res.pixelCount++
				}
			}
			results <- res
		}(startY, endY)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var total regionResult
	for res := range results {
		total.lum += res.lum
		total.sat += res.sat
		total.r += res.r
		total.g += res.g
		total.b += res.b
		total.pixelCount += res.pixelCount
	}

	if total.pixelCount == 0 {
		return metrics{}
	}

	n := float64(total.pixelCount)
	return metrics{
		avgLuminance:  total.lum / n,
		avgSaturation: total.sat / n,
		avgR:          total.r / n,
		avgG:          total.g / n,
		avgB:          total.b / n,
	}
}

// CalculateLaplacianVariance computes the variance of the 3x3 Laplacian response
func (mc *metricsCalculator) CalculateLaplacianVariance(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 3 || height < 3 {
		return 0
	}

	data := mc.slicePool.Get().([]float64)[:0]
	defer func() { mc.slicePool.Put(data[:0]) }()

	// Laplacian kernel: [0, 1, 0; 1, -4, 1; 0, 1, 0]
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			center := float64(gray.GrayAt(x, y).Y)
			top := float64(gray.GrayAt(x, y-1).Y)
			bottom := float64(gray.GrayAt(x, y+1).Y)
			left := float64(gray.GrayAt(x-1, y).Y)
			right := float64(gray.GrayAt(x+1, y).Y)

			data = append(data, -4*center+top+bottom+left+right)
		}
	}

	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// CalculateClippedFraction returns the share of pixels at or above clipLevel
func (mc *metricsCalculator) CalculateClippedFraction(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	if bounds.Empty() {
		return 0
	}

	clipped := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if gray.GrayAt(x, y).Y >= clipLevel {
				clipped++
			}
		}
	}
	return float64(clipped) / float64(bounds.Dx()*bounds.Dy())
}

// saturationValue returns the HSV saturation and value of a normalized colour
func saturationValue(r, g, b float64) (s, v float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))

	v = max
	if max > 0 {
		s = (max - min) / max
	}
	return s, v
}
