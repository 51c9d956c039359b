package conversation

const (
	msgWelcome = "Hi! I'm JioCinema Downloader Bot\n\n" +
		"Send me a JioCinema URL using /dl command\n" +
		"Example: /dl https://www.jiocinema.com/movies/xyz/123456\n\n" +
		"/cancel stops the current selection or download\n" +
		"/history shows your recent downloads"
	msgUsage            = "Please provide a JioCinema URL!\nExample: /dl [URL]"
	msgInvalidURL       = "Please provide a valid JioCinema URL!"
	msgProcessing       = "Processing URL..."
	msgManifestFailed   = "❌ Failed to read the stream manifest."
	msgNoQualities      = "No video qualities found!"
	msgInternalError    = "An error occurred. Please try again with /dl command"
	msgSessionExpired   = "Session expired. Please send /dl again."
	msgUnknownAction    = "Unknown action."
	msgStartingDownload = "Starting download..."
	msgDownloading      = "⬇️ Starting download..."
	msgDownloadTitle    = "⬇️ Downloading:"
	msgUploading        = "📤 Uploading to Telegram..."
	msgUploadTitle      = "📤 Uploading:"
	msgDone             = "✅ Download and upload complete!"
	msgTooLarge         = "✅ Download complete!\nFile size (%s) is too large for Telegram. File saved at: %s"
	msgArchived         = "\nDownload link: %s"
	msgFailed           = "❌ Download failed. Please try again later."
	msgCancelled        = "🛑 Download cancelled."
	msgCancelDone       = "Cancelled."
	msgNothingToCancel  = "Nothing to cancel."
	msgHistoryDisabled  = "Download history is not enabled."
	msgHistoryEmpty     = "No downloads yet."
	msgHistoryHeader    = "Recent downloads:"
)
