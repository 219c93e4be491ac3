// Command drive runs a Journey Drive session locally in a window.
package main

import (
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/journeydrive/sim/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	v, err := NewViewer(config.DefaultTuning())
	if err != nil {
		log.Fatalf("Course error: %v", err)
	}

	ebiten.SetWindowSize(ScreenWidth, ScreenHeight)
	ebiten.SetWindowTitle("Journey Drive")

	if err := ebiten.RunGame(v); err != nil {
		log.Fatal(err)
	}
}
