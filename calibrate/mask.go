package calibrate

import (
	tellus "github.com/tellusgeo/tellus-go"
)

// Landsat Collection 2 QA_PIXEL flag bits.
const (
	QABitDilatedCloud = 1
	QABitCirrus       = 2
	QABitCloud        = 3
	QABitCloudShadow  = 4
)

// Sentinel-2 scene classification (SCL) values treated as unusable:
// cloud shadow, cloud medium/high probability, and cirrus.
var sentinel2BadSCL = []float64{3, 8, 9, 10}

// qaBitClear returns 1 where the given QA bit is unset.
func qaBitClear(qa tellus.Image, bit int) tellus.Image {
	return qa.RightShift(bit).BitwiseAnd(1).Eq(tellus.Constant(0))
}

// MaskLandsatQA masks out dilated cloud, cirrus, cloud and cloud shadow
// pixels using the scene's QA_PIXEL band.
func MaskLandsatQA(img tellus.Image, qaBand string) tellus.Image {
	qa := img.Select(qaBand)
	mask := qaBitClear(qa, QABitDilatedCloud)
	for _, bit := range []int{QABitCirrus, QABitCloud, QABitCloudShadow} {
		mask = mask.And(qaBitClear(qa, bit))
	}
	return img.UpdateMask(mask)
}

// MaskSentinel2SCL masks out cloud-contaminated pixels using the scene
// classification band of a level-2A product.
func MaskSentinel2SCL(img tellus.Image, sclBand string) tellus.Image {
	scl := img.Select(sclBand)
	var mask tellus.Image
	for i, class := range sentinel2BadSCL {
		clear := scl.Neq(tellus.Constant(class))
		if i == 0 {
			mask = clear
		} else {
			mask = mask.And(clear)
		}
	}
	return img.UpdateMask(mask)
}
