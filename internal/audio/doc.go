// Package audio provides lightweight inspection of uploaded audio containers.
// It only looks at the leading ISO-BMFF ftyp box to judge whether bytes
// plausibly hold an M4A/MP4 file; no decoding or resampling happens here.
package audio
