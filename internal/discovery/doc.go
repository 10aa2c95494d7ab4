// Package discovery lists the audio files under each dataset root.
package discovery
