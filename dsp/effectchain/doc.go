// Package effectchain is the rack: two chains of eight module slots, each
// slot holding a Delay, Reverb or Convolution module.
//
// Two goroutines use an Engine. The control goroutine edits the topology
// (AddModule, RemoveModule, ChangeModuleType, RequestSlotMove, SetParameter,
// Restore) and the audio goroutine calls Process once per block. They share
// state only through sync/atomic: slot module pointers, slot positions, the
// pending-move flag, the UI-rebuild flag and parameter values. Process
// never locks, never allocates for blocks that fit the prepared block size
// and never returns an error.
//
// Modules replaced on the control goroutine are kept alive until Release,
// so the audio goroutine can finish a block with the old module.
package effectchain
