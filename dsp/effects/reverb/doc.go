// Package reverb provides the rack's real-time reverb processors.
//
// Included processors:
//   - Hall: stereo Dattorro-style hall with tapped early reflections, two
//     4-line Householder tanks and cross-fed damping.
//   - Plate: mono-summed 4-line Hadamard FDN with short diffusion and a
//     high-shelf in every feedback path.
//   - Convolution: partitioned FFT convolution with an impulse response
//     loaded off the audio goroutine.
//
// Hall and Plate share the Engine interface. All parameters are clamped on
// entry; nothing on the Process path allocates, blocks or returns an error.
package reverb
