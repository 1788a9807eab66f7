package buffer

// Block is a channel-major scratch buffer with a fixed reserved capacity.
type Block struct {
	storage  [][]float64
	views    [][]float64
	frames   int
	capacity int
}

// NewBlock returns a block with the given channel count and frame capacity.
func NewBlock(channels, capacity int) *Block {
	b := &Block{}
	b.Reserve(channels, capacity)
	return b
}

// Reserve (re)allocates storage for channels x capacity frames and clears it.
// Call it from Prepare, not from the audio path.
func (b *Block) Reserve(channels, capacity int) {
	channels = max(channels, 0)
	capacity = max(capacity, 0)

	b.storage = make([][]float64, channels)
	b.views = make([][]float64, channels)
	for ch := range b.storage {
		b.storage[ch] = make([]float64, capacity)
		b.views[ch] = b.storage[ch]
	}
	b.frames = capacity
	b.capacity = capacity
}

// Resize sets the visible frame count. It returns false without changing
// anything when frames exceeds the reserved capacity. Newly exposed samples
// are zeroed.
func (b *Block) Resize(frames int) bool {
	frames = max(frames, 0)
	if frames > b.capacity {
		return false
	}
	for ch, s := range b.storage {
		if frames > b.frames {
			clear(s[b.frames:frames])
		}
		b.views[ch] = s[:frames]
	}
	b.frames = frames
	return true
}

// Channels returns the per-channel views at the current frame count.
func (b *Block) Channels() [][]float64 { return b.views }

// Channel returns a single channel view.
func (b *Block) Channel(ch int) []float64 { return b.views[ch] }

// NumChannels returns the channel count.
func (b *Block) NumChannels() int { return len(b.views) }

// Frames returns the current frame count.
func (b *Block) Frames() int { return b.frames }

// Capacity returns the reserved frame capacity.
func (b *Block) Capacity() int { return b.capacity }

// Zero clears the visible frames of every channel.
func (b *Block) Zero() {
	for _, v := range b.views {
		clear(v)
	}
}

// CopyFrom copies src into the block channel by channel. Missing source
// channels repeat the last available one, so a mono source fills a stereo
// block.
func (b *Block) CopyFrom(src [][]float64) {
	if len(src) == 0 {
		b.Zero()
		return
	}
	for ch, v := range b.views {
		copy(v, src[min(ch, len(src)-1)])
	}
}

// CopyTo copies the block into dst channel by channel.
func (b *Block) CopyTo(dst [][]float64) {
	for ch := range min(len(dst), len(b.views)) {
		copy(dst[ch], b.views[ch])
	}
}
