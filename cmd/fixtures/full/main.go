// Command full runs the full fixture variant.
package main

import "github.com/willibrandon/rummage/pkg/fixture"

func main() {
	fixture.Main(fixture.Full)
}
