// Package drive is the Google Drive discovery source and media downloader.
package drive
