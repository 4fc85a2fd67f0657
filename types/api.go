package types

// DownloadRequest is the friendly download request. Fields are bound from query
// parameters on the streaming and sync endpoints.
type DownloadRequest struct {
	URL            string `form:"url" json:"url" binding:"required"`
	Format         string `form:"format" json:"format,omitempty"`
	Quality        string `form:"quality" json:"quality,omitempty"` // "best", "1080p", "720p", ...
	AudioOnly      bool   `form:"audio_only" json:"audio_only"`
	AudioFormat    string `form:"audio_format" json:"audio_format,omitempty"` // "mp3", "aac", "m4a", ...
	Playlist       bool   `form:"playlist" json:"playlist"`
	PlaylistItems  string `form:"playlist_items" json:"playlist_items,omitempty"` // e.g. "1-5,8,10-12"
	OutputTemplate string `form:"output_template" json:"output_template,omitempty"`
	Subtitles      bool   `form:"subtitles" json:"subtitles"`
	SubtitleLang   string `form:"subtitle_lang" json:"subtitle_lang,omitempty"`
}

// CustomDownloadRequest carries raw yt-dlp parameters that are passed through verbatim.
type CustomDownloadRequest struct {
	URL    string   `json:"url" binding:"required"`
	Params []string `json:"params"`
}
