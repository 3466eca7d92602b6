package storage

import "errors"

// ErrRecordNotFound возвращается, когда запись не найдена в хранилище
var ErrRecordNotFound = errors.New("record not found")

// ErrInvalidKey возвращается при пустой коллекции или идентификаторе
var ErrInvalidKey = errors.New("collection and id must not be empty")
