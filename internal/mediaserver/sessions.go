// SPDX-License-Identifier: MIT

package mediaserver

// Session is a point-in-time snapshot of one active playback session.
// It is rebuilt from scratch on every poll cycle and never diffed
// against a prior snapshot.
type Session struct {
	ID               string
	User             string
	Client           string
	MediaType        string
	PlayMethod       string
	Width            int
	Height           int
	Codec            string
	TargetWidth      int
	TargetHeight     int
	TranscodeReasons []string
	VideoTranscoding bool
	AudioTranscoding bool
}

// rawSession matches the /Sessions response shape shared by Jellyfin
// and Emby. Only the fields the evaluator needs are decoded.
type rawSession struct {
	ID        string `json:"Id"`
	UserName  string `json:"UserName"`
	Client    string `json:"Client"`
	PlayState *struct {
		PlayMethod string `json:"PlayMethod"`
	} `json:"PlayState"`
	NowPlayingItem *struct {
		MediaType    string `json:"MediaType"`
		MediaStreams []struct {
			Type   string `json:"Type"`
			Width  int    `json:"Width"`
			Height int    `json:"Height"`
			Codec  string `json:"Codec"`
		} `json:"MediaStreams"`
	} `json:"NowPlayingItem"`
	TranscodingInfo *struct {
		Width            int      `json:"Width"`
		Height           int      `json:"Height"`
		TranscodeReasons []string `json:"TranscodeReasons"`
		IsVideoDirect    bool     `json:"IsVideoDirect"`
		IsAudioDirect    bool     `json:"IsAudioDirect"`
	} `json:"TranscodingInfo"`
}

// snapshot maps a raw API session into a Session. Sessions without an
// id or a playing item are idle and reported as not ok.
func (r rawSession) snapshot() (Session, bool) {
	if r.ID == "" || r.NowPlayingItem == nil {
		return Session{}, false
	}

	s := Session{
		ID:        r.ID,
		User:      r.UserName,
		Client:    r.Client,
		MediaType: r.NowPlayingItem.MediaType,
	}
	if r.PlayState != nil {
		s.PlayMethod = r.PlayState.PlayMethod
	}

	for _, stream := range r.NowPlayingItem.MediaStreams {
		if stream.Type == "Video" {
			s.Width = stream.Width
			s.Height = stream.Height
			s.Codec = stream.Codec
			break
		}
	}

	transcoding := s.PlayMethod == "Transcode" && s.MediaType == "Video"
	if r.TranscodingInfo != nil {
		s.TargetWidth = r.TranscodingInfo.Width
		s.TargetHeight = r.TranscodingInfo.Height
		s.TranscodeReasons = r.TranscodingInfo.TranscodeReasons
		s.VideoTranscoding = transcoding && !r.TranscodingInfo.IsVideoDirect
		s.AudioTranscoding = transcoding && !r.TranscodingInfo.IsAudioDirect
	} else {
		// Some server versions omit TranscodingInfo for a transcoding
		// session entirely. Treat both components as active so the
		// evaluator's fail-safe can decide.
		s.VideoTranscoding = transcoding
		s.AudioTranscoding = transcoding
	}
	return s, true
}
