// Package watch turns the incoming directory into a drop folder.
//
// fsnotify events are debounced per file name: every create, write, or chmod
// restarts the file's settle timer, and only when the timer expires with the
// file still present is the name handed to the submit callback. Hidden names,
// including the registry's in-flight upload temp files, are ignored.
package watch
