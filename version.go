package main

var LazymintVersion string = "0.1.0"
