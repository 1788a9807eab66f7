// Package audiofile decodes WAV, AIFF, MP3 and Ogg Vorbis files into planar
// float64 channels, and writes WAV files. Decoders are picked by file
// extension through a Registry.
package audiofile
