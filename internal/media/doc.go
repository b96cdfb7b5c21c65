// Package media implements the image side of the capture pipeline: the
// in-memory File representation, HEIC/HEIF to JPEG conversion and
// bounded-resolution re-encoding.
//
// The Converter turns HEIC/HEIF input into JPEG at a fixed quality using
// libvips. It never retries; a conversion failure is a format or library
// problem rather than a transient one.
//
// The Normalizer re-encodes any decodable image so that it fits within a
// bounding box (1920x1080 by default), never upscaling. Each attempt runs
// under a timeout and failures are retried with exponential backoff.
package media
