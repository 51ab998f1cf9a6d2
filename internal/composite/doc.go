// Package composite builds the ffmpeg filter graph that overlays knowledge
// cards on the base video.
//
// For a two-entry plan the filter is
//
//	[1:v]scale=400:-1[img0];[0:v][img0]overlay=x=40:y=40:enable='gte(t,0)*lt(t,4)'[v1];
//	[2:v]scale=400:-1[img1];[v1][img1]overlay=x=40:y=40:enable='gte(t,5)*lt(t,9)'
//
// Chaining follows entry position only. The last stage is unlabeled so ffmpeg
// maps it to the output; audio rides along through the optional 0:a? map.
package composite
