// Package conv provides the convolution used by the convolution reverb.
//
// Direct is an O(N*M) reference for short kernels. Partitioned is a
// streaming, uniformly partitioned overlap-save convolver whose latency
// equals its block size and whose cost does not grow with the host block
// size:
//
//	c, err := conv.NewPartitioned(ir, 256)
//	if err != nil {
//		return err
//	}
//	c.Process(out, in)
package conv
