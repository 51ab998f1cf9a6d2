// Command vidlore transcribes a video, links what is said to encyclopedia and
// news sources, and renders the chosen pages as overlays on the video.
package main
