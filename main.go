package main

import "github.com/varunkrishnan1/SpotifyWeb-Connect/cmd"

func main() {
	cmd.Execute()
}
