package graft

// Version is the library version, also reported by the graft CLI.
const Version = "0.5.0"
