package main

import "net/http"

func main() {
	resp, err := http.Get("http://localhost:8080/ping")
	if err == nil {
		resp.Body.Close()
	}
}
