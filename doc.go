// Package linker runs a queue of functions one after another and collects
// their results.
//
// Functions are registered with their arguments bound up front. A function
// is synchronous unless it declares a *core.Continuation parameter, in
// which case it is asynchronous: the engine hands it a continuation and
// waits until the function calls Next or Fail, possibly from another
// goroutine, before starting the next step.
//
// # Quick Start
//
//	eng := linker.NewEngine()
//	eng.MustRegister(func(a, b int) int { return a / b }, 10, 5).
//		MustRegister(func(a, b int, c *linker.Continuation) {
//			go func() { c.Next(a + b) }()
//		}, 1, 23)
//	_ = eng.OnComplete(func(results []any) {
//		fmt.Println(results) // [2 24]
//	})
//	_ = eng.Execute()
//
// # Continuation Slot
//
// When the continuation parameter is not the last one, pass linker.Slot in
// the bound arguments at its position:
//
//	eng.Register(func(c *linker.Continuation, n int) { c.Next(n * 3) },
//		linker.Slot, 2)
//
// A slot that does not line up with the declared parameter is rejected at
// registration with ErrWrongParameterPosition.
//
// # Failure Modes
//
// Strict engines (the default) abort the run on the first failure: no
// further step runs and the completion handler is not called. Non-strict
// engines record a core.StepError as the failed step's result and keep
// going. Failures are a panic, a non-nil trailing error return, or a call
// to Continuation.Fail; they reach the OnError handler and are never
// returned from Execute.
package linker
