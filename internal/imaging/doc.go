// Package imaging provides the per-pixel editing stages used by the batch
// pipeline.
//
// Every stage operates on a PixelBuffer: a tightly packed, row-major RGBA
// raster with 8 bits per channel and non-premultiplied alpha. The layout is
// identical to image.NRGBA with Stride = 4*Width, so buffers can be handed to
// the disintegration/imaging toolkit without copying.
//
// # Stages
//
// The pipeline applies the stages in a fixed order:
//
//  1. Resize: contain/cover/fill normalization to a target box.
//  2. Grade: brightness, saturation and hue modulation, then contrast.
//  3. Isolate background: alpha-only mutation via a BackgroundStrategy.
//  4. Stylize lines: recolor or re-weight dark "line" pixels.
//  5. Composite text: alpha-blend a single centered line of text.
//
// Only Resize changes dimensions. The other stages mutate the buffer they
// receive and return it.
//
// # Ownership
//
// A stage owns its input buffer for the duration of the call. Callers must
// not keep using a buffer after passing it to a stage; they continue with
// the returned buffer instead. Buffers are never shared between images, so
// independent images can be processed concurrently.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward.
//
// # Constants
//
// Output depends on the thresholds below, so they are fixed and exported:
//
//   - DefaultReferenceTolerance: per-channel distance from the reference
//     background color below which a pixel becomes transparent (30).
//   - DefaultLuminanceThreshold: average (R+G+B)/3 at or above which a pixel
//     is background for the luminance strategy (240).
//   - DefaultLineThreshold: average luminance below which a pixel is a line
//     pixel (90).
package imaging
