package serialmux

import "testing"

func TestClassifyPayload(t *testing.T) {
	tests := []struct {
		payload string
		want    string
	}{
		{`{"frame":3,"tracker_id":7,"class":"bus","confidence":0.8,"coords":[1,2,3,4]}`, EventTypeDetection},
		{`{"frame":3,"tracker_id":null,"class":"bus","confidence":0.8}`, EventTypeDetection},
		{`{"eos":true}`, EventTypeEndOfStream},
		{` {"eos": true} `, EventTypeEndOfStream},
		{`{"eos":false}`, EventTypeStatus},
		{`{"fps":29.7,"model":"yolov8n"}`, EventTypeStatus},
		{`booting detector`, EventTypeUnknown},
		{``, EventTypeUnknown},
	}
	for _, tt := range tests {
		if got := ClassifyPayload(tt.payload); got != tt.want {
			t.Errorf("ClassifyPayload(%q) = %q, want %q", tt.payload, got, tt.want)
		}
	}
}

func TestStatusTracker(t *testing.T) {
	st := NewStatusTracker()
	if err := st.Merge(`{"fps":30,"model":"a"}`); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if err := st.Merge(`{"fps":25}`); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if err := st.Merge(`not json`); err == nil {
		t.Error("expected error for invalid status")
	}

	snap := st.Snapshot()
	if snap["fps"] != float64(25) || snap["model"] != "a" {
		t.Errorf("unexpected snapshot %v", snap)
	}
	snap["fps"] = 0
	if st.Snapshot()["fps"] != float64(25) {
		t.Error("Snapshot should return a copy")
	}
}
