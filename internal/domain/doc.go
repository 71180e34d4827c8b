// Package domain defines the core entities shared by the reader core:
// books registered in the library, podcast generation jobs, and chats.
package domain
