// Command assistant is a command-line company research assistant. Every
// conversation is a thread whose state is checkpointed after each step, so
// an interrupted turn can be resumed and a conversation can be picked up
// later by its thread id.
package main

func main() {
	Execute()
}
