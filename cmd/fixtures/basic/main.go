// Command basic runs the basic fixture variant.
package main

import "github.com/willibrandon/rummage/pkg/fixture"

func main() {
	fixture.Main(fixture.Basic)
}
