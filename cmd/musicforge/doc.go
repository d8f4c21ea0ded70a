// Command musicforge converts and tags audio files from the command line.
//
//	musicforge convert --format flac --normalize ~/Music/incoming
//	musicforge plan --speed 1.25 song.wav
//	musicforge tags --set artist="Someone" song.mp3
//	musicforge watch ~/Music/drop
//	musicforge check
//	musicforge config init
package main
