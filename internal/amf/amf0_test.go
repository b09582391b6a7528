package amf

import "testing"

func TestEncodeDecodeAMF0Number(t *testing.T) {
	encoded := EncodeAMF0(Number(3.5))
	d := NewDecoder(encoded)
	v := d.ReadOne()

	if v.Type() != TypeNumber {
		t.Fatalf("expected TypeNumber, got %v", v.Type())
	}
	if v.Float() != 3.5 {
		t.Fatalf("expected 3.5, got %v", v.Float())
	}
	if !d.Ended() {
		t.Fatal("expected decoder to be exhausted")
	}
}

func TestEncodeDecodeAMF0String(t *testing.T) {
	encoded := EncodeAMF0(String("hello"))
	v := NewDecoder(encoded).ReadOne()

	if v.Type() != TypeString || v.Str() != "hello" {
		t.Fatalf("unexpected decode result: %+v", v)
	}
}

func TestEncodeDecodeAMF0Object(t *testing.T) {
	obj := Object(map[string]*Value{
		"level": String("status"),
		"code":  String("NetStream.Play.Start"),
	})

	v := NewDecoder(EncodeAMF0(obj)).ReadOne()

	if v.Type() != TypeObject {
		t.Fatalf("expected TypeObject, got %v", v.Type())
	}
	if v.Prop("level").Str() != "status" {
		t.Fatalf("expected level=status, got %q", v.Prop("level").Str())
	}
	if v.Prop("missing").Type() != TypeUndefined {
		t.Fatal("expected missing property to decode as undefined")
	}
}

func TestEncodeDecodeAMF0Sequence(t *testing.T) {
	var buf []byte
	buf = append(buf, EncodeAMF0(String("connect"))...)
	buf = append(buf, EncodeAMF0(Number(1))...)
	buf = append(buf, EncodeAMF0(Null())...)

	values := NewDecoder(buf).ReadSequence()
	if len(values) != 3 {
		t.Fatalf("expected 3 values, got %d", len(values))
	}
	if values[0].Str() != "connect" || values[1].Int() != 1 || !values[2].IsNull() {
		t.Fatalf("unexpected sequence: %+v", values)
	}
}
