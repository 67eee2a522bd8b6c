// Package server implements the MCP (Model Context Protocol) server for batch
// image editing.
//
// This package provides a JSON-RPC 2.0 server that exposes the editing
// pipeline through the MCP protocol, so an MCP client can resize, grade,
// cut out, restyle and caption a batch of images in one call.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Logs go to stderr; stdout carries nothing but protocol messages.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - image_edit_batch: Run images through the editing pipeline
//   - image_edit_options: List presets, strategies and slider ranges
//   - image_info: Read format and dimensions without decoding pixels
//   - image_sample_color: Get the color at a pixel
//   - image_overlay_svg: Preview the caption layer as SVG
//
// image_edit_batch accepts the same loosely typed fields as the HTTP form
// endpoint. Missing values are defaulted and sliders are clamped before the
// pipeline sees them; see package form.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32602 for invalid arguments, -32000 for tool failures
//   - message: Human-readable error description
//   - data: The underlying error string
//
// # Usage
//
//	srv := server.New(p, codec, logger)
//	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
//	    logger.Fatal().Err(err).Msg("server stopped")
//	}
package server
