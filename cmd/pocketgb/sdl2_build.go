//go:build sdl2

package main

const sdl2Enabled = true
