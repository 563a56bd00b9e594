package cascade

import "testing"

func TestJSONObjectWriter(t *testing.T) {
	var w jsonObjectWriter
	w.Append("kind", "transaction")
	w.Optional("skipped", "")
	w.Optional("note", "kept")
	w.Append("rows", []int{1, 2})

	got, err := w.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"kind":"transaction","note":"kept","rows":[1,2]}`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestJSONObjectWriterEmbed(t *testing.T) {
	var w jsonObjectWriter
	w.Append("kind", "account")
	w.Embed([]byte(`{"name":"Brokerage","currency":"USD"}`))
	w.Append("version", 1)

	got, err := w.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"kind":"account","name":"Brokerage","currency":"USD","version":1}`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestJSONObjectWriterEmpty(t *testing.T) {
	var w jsonObjectWriter
	got, err := w.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "{}" {
		t.Errorf("got %s, want {}", got)
	}
}
