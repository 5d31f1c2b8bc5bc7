package treemap_test

import (
	"fmt"

	"github.com/matzehuels/zonemap/pkg/treemap"
)

func ExampleLayout() {
	items := []treemap.Item[string]{
		{Weight: 20, Payload: "KCHOL"},
		{Weight: 80, Payload: "THYAO"},
	}
	res := treemap.Layout(items, treemap.Size{W: 400, H: 400}, treemap.Padding{})
	for _, n := range res.Nodes {
		fmt.Printf("%s %.0f,%.0f-%.0f,%.0f area=%.0f\n", n.Payload, n.X0, n.Y0, n.X1, n.Y1, n.Area())
	}
	// Output:
	// THYAO 0,0-320,400 area=128000
	// KCHOL 320,0-400,400 area=32000
}
