// Package driver runs a game in real time.
//
// A Loop owns one Executor and is the only goroutine that touches it. The
// gravity clock, queued player input and the frame clock are multiplexed in
// a single select, so commands are applied strictly one after another and
// the engine needs no locking of its own:
//
//	loop := driver.New(driver.Engine(eng), eng.Config())
//	go func() {
//		for f := range loop.Frames() {
//			render(f.Snapshot)
//		}
//	}()
//	loop.Submit(engine.CommandLeft)
//	err := loop.Run(ctx)
//
// Submit never blocks. When the queue is full the command is dropped and
// counted; Dropped reports the total.
package driver
