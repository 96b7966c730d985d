// Command toplevel runs the toplevel fixture variant.
package main

import "github.com/willibrandon/rummage/pkg/fixture"

func main() {
	fixture.Main(fixture.TopLevel)
}
