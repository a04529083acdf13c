// Command posecoach rates physiotherapy exercise recordings against a
// reference motion and keeps a history of the verdicts.
package main

func main() {
	Execute()
}
