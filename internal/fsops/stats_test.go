package fsops

import "testing"

func TestStorageStats(t *testing.T) {
	tr := newTestTree(t)
	mustWrite(t, tr, "a.txt", "12345")
	mustWrite(t, tr, "b.txt", "123")
	mustWrite(t, tr, "pic.jpg", "xx")
	mustWrite(t, tr, "noext", "x")
	mustWrite(t, tr, "d/c.TXT", "1")
	mustMkdir(t, tr, ".system/uploads")
	mustWrite(t, tr, ".system/links.json", "[]")

	st, err := tr.StorageStats()
	if err != nil {
		t.Fatal(err)
	}
	if st.Files != 5 {
		t.Errorf("files = %d, want 5", st.Files)
	}
	if st.Folders != 1 {
		t.Errorf("folders = %d, want 1", st.Folders)
	}
	if st.TotalSize != 12 {
		t.Errorf("total size = %d, want 12", st.TotalSize)
	}

	// Extension histogram: lowercased, most frequent first, ties by name.
	if len(st.FileTypes) != 2 {
		t.Fatalf("file types = %+v, want 2 buckets", st.FileTypes)
	}
	if st.FileTypes[0].Ext != ".txt" || st.FileTypes[0].Count != 3 {
		t.Errorf("top type = %+v, want .txt x3", st.FileTypes[0])
	}
	if st.FileTypes[1].Ext != ".jpg" || st.FileTypes[1].Count != 1 {
		t.Errorf("second type = %+v, want .jpg x1", st.FileTypes[1])
	}
}
