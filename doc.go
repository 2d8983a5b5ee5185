// Package avframesplit extracts a contiguous range of frames of a video file
// into losslessly encoded images, one file per frame.
package avframesplit
